// Package cache implements the response cache over a key-value store with
// TTL. Entries are written once per distinct (normalized query, weights)
// pair and never updated in place; last-writer-wins is acceptable because
// entries for the same key are semantically interchangeable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/db"
	"github.com/hireloop/candex/internal/domain"
)

const keyPrefix = "candex:search:"

// SchemaVersion is bumped whenever the serialized payload shape changes.
// A version mismatch on read is treated as corruption (i.e. a miss).
const SchemaVersion = 1

// DefaultTTL is the response cache entry lifetime.
const DefaultTTL = time.Hour

// ErrMiss signals an absent cache entry.
var ErrMiss = errors.New("cache miss")

// store is the consumer interface for the response cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// envelope wraps the cached payload with its schema version.
type envelope struct {
	Version int                 `json:"version"`
	Result  domain.SearchResult `json:"result"`
}

// Repo is the response cache repository.
type Repo struct {
	kv      store
	ttl     time.Duration
	results *prometheus.CounterVec
	logger  *zap.Logger
}

// New creates a response cache. results is a counter vec with label "result"
// ("hit"/"miss"/"stale_invalid"/"write"/"write_error"); may be nil.
func New(kv store, ttl time.Duration, results *prometheus.CounterVec, logger *zap.Logger) *Repo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repo{kv: kv, ttl: ttl, results: results, logger: logger}
}

// Get returns the cached result for key. ErrMiss for absent entries;
// domain.ErrCacheCorruption for entries that fail schema validation
// (callers treat both as a miss, but corruption is logged loudly upstream).
func (r *Repo) Get(ctx context.Context, key string) (domain.SearchResult, error) {
	data, err := r.kv.Get(ctx, keyPrefix+key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			r.inc("miss")
			return domain.SearchResult{}, ErrMiss
		}
		// Unreachable cache degrades to a miss; the pipeline can rebuild the entry.
		r.logger.Warn("cache read failed", zap.String("cache_key", key), zap.Error(err))
		r.inc("miss")
		return domain.SearchResult{}, ErrMiss
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.inc("stale_invalid")
		return domain.SearchResult{}, fmt.Errorf("%w: unmarshal: %w", domain.ErrCacheCorruption, err)
	}

	if err := validate(&env); err != nil {
		r.inc("stale_invalid")
		return domain.SearchResult{}, fmt.Errorf("%w: %w", domain.ErrCacheCorruption, err)
	}

	r.inc("hit")
	return env.Result, nil
}

// Set stores result under key with the configured TTL.
func (r *Repo) Set(ctx context.Context, key string, result domain.SearchResult) error {
	env := envelope{Version: SchemaVersion, Result: result}
	data, err := json.Marshal(env)
	if err != nil {
		r.inc("write_error")
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := r.kv.SetWithTTL(ctx, keyPrefix+key, data, r.ttl); err != nil {
		r.inc("write_error")
		return fmt.Errorf("write cache entry: %w", err)
	}
	r.inc("write")
	return nil
}

// validate checks the envelope against the current schema. Candidates must
// be present (an empty list is valid — negative caching) and every entry
// must carry an id and an in-range composite score.
func validate(env *envelope) error {
	if env.Version != SchemaVersion {
		return fmt.Errorf("schema version %d, want %d", env.Version, SchemaVersion)
	}
	if env.Result.Candidates == nil {
		return errors.New("missing candidates field")
	}
	for i := range env.Result.Candidates {
		c := &env.Result.Candidates[i]
		if c.ID == "" {
			return fmt.Errorf("candidate %d: missing id", i)
		}
		if c.MatchScore < 0 || c.MatchScore > 1 {
			return fmt.Errorf("candidate %d: match_score %v out of range", i, c.MatchScore)
		}
	}
	return nil
}

func (r *Repo) inc(result string) {
	if r.results != nil {
		r.results.WithLabelValues(result).Inc()
	}
}
