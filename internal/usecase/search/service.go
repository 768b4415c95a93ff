// Package search orchestrates the candidate search pipeline: cache check,
// query interpretation, embedding, vector search, relational enrichment,
// scoring, and the cache write-back.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/domain"
	"github.com/hireloop/candex/internal/domain/candidate"
	"github.com/hireloop/candex/internal/domain/query"
	"github.com/hireloop/candex/internal/metrics"
	"github.com/hireloop/candex/internal/usecase/scoring"
)

// Pipeline defaults.
const (
	DefaultDeadline = 20 * time.Second
	DefaultTopK     = 20
)

// NoResultsMessage is returned (and cached) when nothing matched.
const NoResultsMessage = "No candidates found matching your search criteria"

// Config wires a Service's collaborators. All clients are injected so the
// pipeline owns no connection state of its own.
type Config struct {
	Interpreter Interpreter
	Embedder    Embedder
	Index       VectorIndex
	Store       CandidateStore
	Cache       ResponseCache

	// Auditor is optional; nil disables audit events.
	Auditor Auditor

	Logger *zap.Logger

	// Deadline bounds the whole pipeline from interpretation through the
	// cache write. Zero means DefaultDeadline.
	Deadline time.Duration

	// TopK is the number of vector matches requested. Zero means DefaultTopK.
	TopK int
}

// Service runs the search pipeline.
type Service struct {
	interp   Interpreter
	embed    Embedder
	index    VectorIndex
	store    CandidateStore
	cache    ResponseCache
	auditor  Auditor
	logger   *zap.Logger
	deadline time.Duration
	topK     int
}

// New creates a search service.
func New(cfg Config) *Service {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		interp:   cfg.Interpreter,
		embed:    cfg.Embedder,
		index:    cfg.Index,
		store:    cfg.Store,
		cache:    cfg.Cache,
		auditor:  cfg.Auditor,
		logger:   cfg.Logger,
		deadline: cfg.Deadline,
		topK:     cfg.TopK,
	}
}

// Search runs the full pipeline for one validated query. The returned
// CacheStatus is meaningful on success and on cache-related paths; on a
// hard failure it reports how far the cache check got.
func (s *Service) Search(ctx context.Context, q query.Query) (domain.SearchResult, CacheStatus, error) {
	started := time.Now()
	key := CacheKey(q)

	result, status := s.checkCache(ctx, q, key)
	if status == StatusHit {
		s.audit(q, status, len(result.Candidates), started)
		return result, status, nil
	}

	// The deadline covers interpretation through the cache write. An
	// expired deadline cancels in-flight upstream calls, not just the
	// orchestrator's wait for them.
	pctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	result, err := s.run(pctx, q, key)
	if err != nil {
		return domain.SearchResult{}, status, err
	}

	s.audit(q, status, len(result.Candidates), started)
	return result, status, nil
}

func (s *Service) run(ctx context.Context, q query.Query, key string) (domain.SearchResult, error) {
	iq, err := s.interpret(ctx, q)
	if err != nil {
		return domain.SearchResult{}, s.stageErr(ctx, "interpret", err)
	}
	parsed := domain.NewParsedQuery(iq)

	vector, err := s.embedQuery(ctx, q, iq)
	if err != nil {
		return domain.SearchResult{}, s.stageErr(ctx, "embed", err)
	}

	matches, err := s.searchIndex(ctx, vector)
	if err != nil {
		return domain.SearchResult{}, s.stageErr(ctx, "vector_search", err)
	}
	if len(matches) == 0 {
		return s.respondEmpty(ctx, q, key, parsed)
	}

	enriched, err := s.enrich(ctx, q, matches)
	if err != nil {
		return domain.SearchResult{}, s.stageErr(ctx, "enrich", err)
	}
	if len(enriched) == 0 {
		return s.respondEmpty(ctx, q, key, parsed)
	}

	scored := s.score(enriched, iq, q.Weights())

	result := domain.SearchResult{Candidates: scored, Parsed: parsed}
	if err := s.writeCache(ctx, key, result); err != nil {
		return domain.SearchResult{}, s.stageErr(ctx, "cache_write", err)
	}
	return result, nil
}

// checkCache resolves the cache outcome for key. A schema-invalid entry is
// logged loudly (it signals producer/consumer schema skew) and treated as
// a miss.
func (s *Service) checkCache(ctx context.Context, q query.Query, key string) (domain.SearchResult, CacheStatus) {
	defer s.observe("cache_check", time.Now())

	result, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		return result, StatusHit
	case errors.Is(err, domain.ErrCacheCorruption):
		s.logger.Error("cached search result failed schema validation, treating as miss",
			zap.String("cache_key", key),
			zap.String("query", q.Normalized()),
			zap.Error(err),
		)
		return domain.SearchResult{}, StatusStaleInvalid
	default:
		return domain.SearchResult{}, StatusMiss
	}
}

func (s *Service) interpret(ctx context.Context, q query.Query) (query.Interpreted, error) {
	defer s.observe("interpret", time.Now())
	return s.interp.Interpret(ctx, q.Raw())
}

func (s *Service) embedQuery(ctx context.Context, q query.Query, iq query.Interpreted) ([]float32, error) {
	defer s.observe("embed", time.Now())
	return s.embed.Embed(ctx, iq.EmbeddingText(q.Normalized()))
}

func (s *Service) searchIndex(ctx context.Context, vector []float32) ([]candidate.Match, error) {
	defer s.observe("vector_search", time.Now())
	return s.index.Search(ctx, vector, s.topK)
}

// enrich merges vector matches with their relational records, preserving
// match order. Matches whose id is missing from the store are dropped and
// counted; the index and the store have drifted for those ids.
func (s *Service) enrich(ctx context.Context, q query.Query, matches []candidate.Match) ([]candidate.Enriched, error) {
	defer s.observe("enrich", time.Now())

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.CandidateID)
	}

	records, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]candidate.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	enriched := make([]candidate.Enriched, 0, len(matches))
	for _, m := range matches {
		rec, ok := byID[m.CandidateID]
		if !ok {
			metrics.ConsistencyDropsTotal.Inc()
			s.logger.Warn("vector match has no relational record, dropping",
				zap.String("candidate_id", m.CandidateID),
				zap.String("query", q.Normalized()),
				zap.Error(domain.ErrDataInconsistency),
			)
			continue
		}
		enriched = append(enriched, candidate.Enriched{Record: rec, Similarity: m.Similarity})
	}
	return enriched, nil
}

// score computes per-candidate scores and sorts descending by composite.
// The sort is stable, so candidates with equal composites keep their vector
// similarity order.
func (s *Service) score(enriched []candidate.Enriched, iq query.Interpreted, w query.Weights) []candidate.Scored {
	defer s.observe("score", time.Now())

	scored := make([]candidate.Scored, 0, len(enriched))
	for _, c := range enriched {
		scored = append(scored, scoring.Score(c, iq, w))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MatchScore > scored[j].MatchScore
	})
	return scored
}

// writeCache persists the result. A failed write is a hard failure: a
// pipeline that cannot record its outcome must not pretend it completed.
func (s *Service) writeCache(ctx context.Context, key string, result domain.SearchResult) error {
	defer s.observe("cache_write", time.Now())
	return s.cache.Set(ctx, key, result)
}

// respondEmpty caches and returns the no-results outcome. Negative caching:
// the empty result is stored exactly like a populated one so repeated
// no-hit queries skip the expensive pipeline.
func (s *Service) respondEmpty(ctx context.Context, q query.Query, key string, parsed *domain.ParsedQuery) (domain.SearchResult, error) {
	s.logger.Info("search produced no candidates",
		zap.String("query", q.Normalized()),
	)
	result := domain.SearchResult{
		Candidates: []candidate.Scored{},
		Parsed:     parsed,
		Message:    NoResultsMessage,
	}
	if err := s.writeCache(ctx, key, result); err != nil {
		return domain.SearchResult{}, s.stageErr(ctx, "cache_write", err)
	}
	return result, nil
}

// stageErr maps a stage failure. A deadline expiry that belongs to the
// pipeline's own timer becomes ErrPipelineTimeout; everything else keeps
// its cause with the stage name prefixed.
func (s *Service) stageErr(ctx context.Context, stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		return fmt.Errorf("%w: %s stage exceeded the pipeline deadline", domain.ErrPipelineTimeout, stage)
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func (s *Service) observe(stage string, start time.Time) {
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (s *Service) audit(q query.Query, status CacheStatus, results int, started time.Time) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(AuditEvent{
		Query:       q.Normalized(),
		CacheStatus: status,
		Results:     results,
		Duration:    time.Since(started),
	})
}

// CacheKey derives the cache key for a query: a hash of the normalized
// text plus the weight triple, so requests differing only in case or
// spacing share an entry while different weights do not.
func CacheKey(q query.Query) string {
	w := q.Weights()
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%.3f|%.3f|%.3f",
		q.Normalized(), w.Skill, w.Experience, w.Culture))
	return hex.EncodeToString(h[:])
}
