package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/domain"
	"github.com/hireloop/candex/internal/domain/candidate"
	"github.com/hireloop/candex/internal/domain/query"
)

type fakeInterpreter struct {
	calls  int
	result query.Interpreted
	err    error
	fn     func(ctx context.Context) (query.Interpreted, error)
}

func (f *fakeInterpreter) Interpret(ctx context.Context, raw string) (query.Interpreted, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(ctx)
	}
	return f.result, f.err
}

type fakeEmbedder struct {
	calls  int
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

type fakeIndex struct {
	calls   int
	matches []candidate.Match
	err     error
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, topK int) ([]candidate.Match, error) {
	f.calls++
	return f.matches, f.err
}

type fakeStore struct {
	calls   int
	records []candidate.Record
	err     error
}

func (f *fakeStore) FindByIDs(ctx context.Context, ids []string) ([]candidate.Record, error) {
	f.calls++
	return f.records, f.err
}

type fakeCache struct {
	getErr   error
	cached   domain.SearchResult
	setErr   error
	setCalls int
	lastSet  domain.SearchResult
}

func (f *fakeCache) Get(ctx context.Context, key string) (domain.SearchResult, error) {
	if f.getErr != nil {
		return domain.SearchResult{}, f.getErr
	}
	return f.cached, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, result domain.SearchResult) error {
	f.setCalls++
	f.lastSet = result
	return f.setErr
}

var errMissStub = errors.New("cache miss")

type fixture struct {
	interp *fakeInterpreter
	embed  *fakeEmbedder
	index  *fakeIndex
	store  *fakeStore
	cache  *fakeCache
	svc    *Service
}

func newFixture() *fixture {
	f := &fixture{
		interp: &fakeInterpreter{
			result: query.NewInterpreted([]string{"react", "developer"}, []string{"React"}, ""),
		},
		embed: &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}},
		index: &fakeIndex{matches: []candidate.Match{{CandidateID: "c1", Similarity: 0.9}}},
		store: &fakeStore{records: []candidate.Record{{
			ID:     "c1",
			Name:   "Ada",
			Skills: []string{"React"},
			Experiences: []candidate.Experience{
				{Title: "Senior React Developer"},
			},
		}}},
		cache: &fakeCache{getErr: errMissStub},
	}
	f.svc = New(Config{
		Interpreter: f.interp,
		Embedder:    f.embed,
		Index:       f.index,
		Store:       f.store,
		Cache:       f.cache,
		Logger:      zap.NewNop(),
	})
	return f
}

func mustQuery(t *testing.T, raw string, w *query.Weights) query.Query {
	t.Helper()
	q, err := query.New(raw, w)
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	return q
}

func TestSearchScoresAndCaches(t *testing.T) {
	f := newFixture()
	q := mustQuery(t, "React developer", &query.Weights{Skill: 0.5, Experience: 0.3, Culture: 0.2})

	result, status, err := f.svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if status != StatusMiss {
		t.Errorf("cache status = %s, want MISS", status)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(result.Candidates))
	}

	c := result.Candidates[0]
	if c.Scores.SkillMatch != 0.9 {
		t.Errorf("skill match = %v, want 0.9", c.Scores.SkillMatch)
	}
	if c.Scores.ExperienceRelevance != 0.7 {
		t.Errorf("experience relevance = %v, want 0.7", c.Scores.ExperienceRelevance)
	}
	if want := 0.5*0.9 + 0.3*0.7 + 0.2*0.1; c.MatchScore != want {
		t.Errorf("match score = %v, want %v", c.MatchScore, want)
	}
	if result.Parsed == nil || len(result.Parsed.Keywords) != 2 {
		t.Errorf("unexpected parsed query: %+v", result.Parsed)
	}

	if f.cache.setCalls != 1 {
		t.Errorf("expected 1 cache write, got %d", f.cache.setCalls)
	}
}

func TestCacheHitSkipsPipeline(t *testing.T) {
	f := newFixture()
	f.cache.getErr = nil
	f.cache.cached = domain.SearchResult{Candidates: []candidate.Scored{}}

	_, status, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if status != StatusHit {
		t.Errorf("cache status = %s, want HIT", status)
	}
	if f.interp.calls != 0 || f.embed.calls != 0 || f.index.calls != 0 || f.store.calls != 0 {
		t.Errorf("cache hit still called upstreams: interp=%d embed=%d index=%d store=%d",
			f.interp.calls, f.embed.calls, f.index.calls, f.store.calls)
	}
	if f.cache.setCalls != 0 {
		t.Errorf("cache hit triggered %d writes", f.cache.setCalls)
	}
}

func TestCacheCorruptionBehavesAsMiss(t *testing.T) {
	f := newFixture()
	f.cache.getErr = domain.ErrCacheCorruption

	result, status, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if status != StatusStaleInvalid {
		t.Errorf("cache status = %s, want STALE_INVALID", status)
	}
	if len(result.Candidates) != 1 {
		t.Errorf("expected pipeline to run and return 1 candidate, got %d", len(result.Candidates))
	}
	if f.cache.setCalls != 1 {
		t.Errorf("expected rebuilt entry to be written, got %d writes", f.cache.setCalls)
	}
}

func TestMalformedInterpretationIsHardFailure(t *testing.T) {
	f := newFixture()
	f.interp.err = domain.ErrMalformedResponse
	f.interp.result = query.Interpreted{}

	_, _, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
	if f.cache.setCalls != 0 {
		t.Errorf("hard failure still wrote cache %d times", f.cache.setCalls)
	}
}

func TestOpenBreakerFailsFast(t *testing.T) {
	f := newFixture()
	f.interp.err = domain.ErrUpstreamUnavailable

	_, _, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}
	if f.embed.calls != 0 || f.index.calls != 0 {
		t.Errorf("fail-fast still reached embed (%d) or index (%d)", f.embed.calls, f.index.calls)
	}
}

func TestEmptyVectorResult(t *testing.T) {
	f := newFixture()
	f.index.matches = nil

	result, _, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if result.Candidates == nil || len(result.Candidates) != 0 {
		t.Errorf("expected empty non-nil candidate list, got %v", result.Candidates)
	}
	if result.Message != NoResultsMessage {
		t.Errorf("message = %q, want %q", result.Message, NoResultsMessage)
	}
	if f.cache.setCalls != 1 {
		t.Errorf("empty result not negatively cached: %d writes", f.cache.setCalls)
	}
	if f.store.calls != 0 {
		t.Errorf("empty vector result still hit the store %d times", f.store.calls)
	}
}

func TestOrphanMatchIsDropped(t *testing.T) {
	f := newFixture()
	f.index.matches = []candidate.Match{
		{CandidateID: "c1", Similarity: 0.9},
		{CandidateID: "ghost", Similarity: 0.8},
	}

	result, _, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Candidates) != 1 || result.Candidates[0].ID != "c1" {
		t.Errorf("expected only c1 to survive enrichment, got %+v", result.Candidates)
	}
}

func TestAllMatchesDroppedBehavesAsEmpty(t *testing.T) {
	f := newFixture()
	f.index.matches = []candidate.Match{{CandidateID: "ghost", Similarity: 0.8}}
	f.store.records = nil

	result, _, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Candidates) != 0 || result.Message != NoResultsMessage {
		t.Errorf("expected empty no-results outcome, got %+v", result)
	}
	if f.cache.setCalls != 1 {
		t.Errorf("expected empty outcome to be cached, got %d writes", f.cache.setCalls)
	}
}

func TestCacheWriteFailureAborts(t *testing.T) {
	f := newFixture()
	f.cache.setErr = errors.New("cache down")

	_, _, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if err == nil {
		t.Fatal("expected cache write failure to abort the pipeline")
	}
}

func TestPipelineDeadlineMapsToTimeout(t *testing.T) {
	f := newFixture()
	f.interp.fn = func(ctx context.Context) (query.Interpreted, error) {
		<-ctx.Done()
		return query.Interpreted{}, ctx.Err()
	}
	f.svc = New(Config{
		Interpreter: f.interp,
		Embedder:    f.embed,
		Index:       f.index,
		Store:       f.store,
		Cache:       f.cache,
		Logger:      zap.NewNop(),
		Deadline:    20 * time.Millisecond,
	})

	_, _, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if !errors.Is(err, domain.ErrPipelineTimeout) {
		t.Fatalf("error = %v, want ErrPipelineTimeout", err)
	}
}

func TestResultsSortedByMatchScore(t *testing.T) {
	f := newFixture()
	f.index.matches = []candidate.Match{
		{CandidateID: "weak", Similarity: 0.95},
		{CandidateID: "strong", Similarity: 0.90},
	}
	f.store.records = []candidate.Record{
		{ID: "weak", Name: "B"},
		{ID: "strong", Name: "A", Skills: []string{"React"},
			Experiences: []candidate.Experience{{Title: "React Developer"}}},
	}

	result, _, err := f.svc.Search(context.Background(), mustQuery(t, "React developer", nil))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(result.Candidates))
	}
	if result.Candidates[0].ID != "strong" {
		t.Errorf("expected strong candidate first, got %s", result.Candidates[0].ID)
	}
	if result.Candidates[0].MatchScore < result.Candidates[1].MatchScore {
		t.Errorf("results not sorted descending: %v < %v",
			result.Candidates[0].MatchScore, result.Candidates[1].MatchScore)
	}
}

func TestCacheKeyNormalization(t *testing.T) {
	a := mustQuery(t, "React   Developer", nil)
	b := mustQuery(t, "react developer", nil)
	if CacheKey(a) != CacheKey(b) {
		t.Error("case and spacing variants should share a cache key")
	}

	c := mustQuery(t, "react developer", &query.Weights{Skill: 0.5, Experience: 0.3, Culture: 0.2})
	if CacheKey(b) == CacheKey(c) {
		t.Error("different weights must produce different cache keys")
	}
}
