// Package vecindex is the vector-index client: a circuit-breaker protected
// KNN lookup returning candidate ids with similarity scores. An empty result
// is a valid "no candidates" outcome, not an error.
package vecindex

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/breaker"
	"github.com/hireloop/candex/internal/db"
	"github.com/hireloop/candex/internal/domain/candidate"
	"github.com/hireloop/candex/internal/metrics"
)

// KeyPrefix is prepended to candidate ids in vector-index document keys.
const KeyPrefix = "candex:cand:"

// store is the consumer interface for vector search (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.VectorIndex.
type Repo struct {
	store     store
	indexName string
	brk       *breaker.Breaker[[]candidate.Match]
}

// New creates a vector index client with its own breaker.
func New(s store, indexName string, brkCfg breaker.Config, logger *zap.Logger) *Repo {
	return &Repo{
		store:     s,
		indexName: indexName,
		brk:       breaker.New[[]candidate.Match](brkCfg, metrics.BreakerState, logger),
	}
}

// Search runs a KNN query and returns matches ordered by descending
// similarity, as produced by the index.
func (r *Repo) Search(ctx context.Context, vector []float32, topK int) ([]candidate.Match, error) {
	return r.brk.Do(ctx, func(ctx context.Context) ([]candidate.Match, error) {
		sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
			IndexName:    r.indexName,
			Vector:       vector,
			K:            topK,
			ReturnFields: []string{"__vector_score"},
		})
		if err != nil {
			metrics.UpstreamRequestsTotal.WithLabelValues("vector_index", "error").Inc()
			return nil, fmt.Errorf("search knn %s: %w", r.indexName, err)
		}

		metrics.UpstreamRequestsTotal.WithLabelValues("vector_index", "success").Inc()

		matches := make([]candidate.Match, 0, len(sr.Entries))
		for _, e := range sr.Entries {
			matches = append(matches, candidate.Match{
				CandidateID: strings.TrimPrefix(e.Key, KeyPrefix),
				Similarity:  e.Score,
			})
		}
		return matches, nil
	})
}
