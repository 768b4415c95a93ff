package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/db"
	"github.com/hireloop/candex/internal/domain"
	"github.com/hireloop/candex/internal/domain/candidate"
)

// memKV is an in-memory store implementing the consumer interface.
type memKV struct {
	data    map[string][]byte
	lastTTL time.Duration
	getErr  error
	setErr  error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func sampleResult() domain.SearchResult {
	return domain.SearchResult{
		Candidates: []candidate.Scored{
			{
				Enriched: candidate.Enriched{
					Record:     candidate.Record{ID: "c1", Name: "Ada"},
					Similarity: 0.9,
				},
				MatchScore: 0.75,
				Reasoning:  "strong skill alignment",
			},
		},
		Parsed: &domain.ParsedQuery{Keywords: []string{"react"}},
	}
}

func TestRoundTrip(t *testing.T) {
	kv := newMemKV()
	repo := New(kv, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	if err := repo.Set(ctx, "k1", sampleResult()); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if kv.lastTTL != time.Hour {
		t.Errorf("expected TTL 1h, got %v", kv.lastTTL)
	}

	got, err := repo.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].ID != "c1" {
		t.Fatalf("unexpected candidates: %+v", got.Candidates)
	}
	if got.Parsed == nil || got.Parsed.Keywords[0] != "react" {
		t.Fatalf("unexpected parsed query: %+v", got.Parsed)
	}
}

func TestGet_Miss(t *testing.T) {
	repo := New(newMemKV(), time.Hour, nil, zap.NewNop())

	_, err := repo.Get(context.Background(), "absent")
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestGet_UnreachableStoreDegradesToMiss(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("connection refused")
	repo := New(kv, time.Hour, nil, zap.NewNop())

	_, err := repo.Get(context.Background(), "k1")
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss for unreachable cache, got %v", err)
	}
}

func TestGet_InvalidJSONIsCorruption(t *testing.T) {
	kv := newMemKV()
	kv.data[keyPrefix+"k1"] = []byte("{not json")
	repo := New(kv, time.Hour, nil, zap.NewNop())

	_, err := repo.Get(context.Background(), "k1")
	if !errors.Is(err, domain.ErrCacheCorruption) {
		t.Fatalf("expected ErrCacheCorruption, got %v", err)
	}
}

func TestGet_VersionSkewIsCorruption(t *testing.T) {
	kv := newMemKV()
	env := envelope{Version: SchemaVersion + 1, Result: sampleResult()}
	data, _ := json.Marshal(env)
	kv.data[keyPrefix+"k1"] = data
	repo := New(kv, time.Hour, nil, zap.NewNop())

	_, err := repo.Get(context.Background(), "k1")
	if !errors.Is(err, domain.ErrCacheCorruption) {
		t.Fatalf("expected ErrCacheCorruption for version skew, got %v", err)
	}
}

func TestGet_OutOfRangeScoreIsCorruption(t *testing.T) {
	kv := newMemKV()
	res := sampleResult()
	res.Candidates[0].MatchScore = 1.5
	data, _ := json.Marshal(envelope{Version: SchemaVersion, Result: res})
	kv.data[keyPrefix+"k1"] = data
	repo := New(kv, time.Hour, nil, zap.NewNop())

	_, err := repo.Get(context.Background(), "k1")
	if !errors.Is(err, domain.ErrCacheCorruption) {
		t.Fatalf("expected ErrCacheCorruption for out-of-range score, got %v", err)
	}
}

func TestRoundTrip_EmptyResultIsValid(t *testing.T) {
	repo := New(newMemKV(), time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	// Negative caching: a "no candidates" outcome is cached like any other.
	empty := domain.SearchResult{
		Candidates: []candidate.Scored{},
		Message:    "No candidates found matching your search criteria",
	}
	if err := repo.Set(ctx, "k1", empty); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := repo.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Candidates) != 0 || got.Message == "" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSet_WriteErrorPropagates(t *testing.T) {
	kv := newMemKV()
	kv.setErr = errors.New("connection refused")
	repo := New(kv, time.Hour, nil, zap.NewNop())

	if err := repo.Set(context.Background(), "k1", sampleResult()); err == nil {
		t.Fatal("expected write error")
	}
}
