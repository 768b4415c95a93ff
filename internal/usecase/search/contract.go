package search

import (
	"context"
	"time"

	"github.com/hireloop/candex/internal/domain"
	"github.com/hireloop/candex/internal/domain/candidate"
	"github.com/hireloop/candex/internal/domain/query"
)

// Interpreter extracts structured keywords, skills, and location from a
// free-text query.
type Interpreter interface {
	Interpret(ctx context.Context, rawQuery string) (query.Interpreted, error)
}

// Embedder vectorizes text into an embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex runs KNN similarity search over candidate embeddings.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, topK int) ([]candidate.Match, error)
}

// CandidateStore reads full candidate records. Subset-tolerant: ids absent
// from the store are simply not returned.
type CandidateStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]candidate.Record, error)
}

// ResponseCache stores completed search results keyed by request hash.
type ResponseCache interface {
	Get(ctx context.Context, key string) (domain.SearchResult, error)
	Set(ctx context.Context, key string, result domain.SearchResult) error
}

// Auditor records completed searches out of band. Implementations must
// never block the pipeline.
type Auditor interface {
	Record(ev AuditEvent)
}

// AuditEvent describes one completed search for the audit sink.
type AuditEvent struct {
	Query       string
	CacheStatus CacheStatus
	Results     int
	Duration    time.Duration
}

// CacheStatus is the cache outcome reported in the response headers.
type CacheStatus string

const (
	StatusHit          CacheStatus = "HIT"
	StatusMiss         CacheStatus = "MISS"
	StatusStaleInvalid CacheStatus = "STALE_INVALID"
)
