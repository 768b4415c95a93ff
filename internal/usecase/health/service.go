package health

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks over the pipeline's dependencies.
type Service struct {
	cache     Pinger
	index     Pinger
	store     Pinger
	embedding EmbeddingChecker
}

// New creates a Service. Any dependency can be nil; nil dependencies are
// skipped.
func New(cache, index, store Pinger, embedding EmbeddingChecker) *Service {
	return &Service{cache: cache, index: index, store: store, embedding: embedding}
}

// Check probes all components in parallel. Individual failures degrade the
// report; they never error the check itself.
func (s *Service) Check(ctx context.Context) Report {
	var cacheRes, indexRes, storeRes, embedRes CheckResult

	g, gctx := errgroup.WithContext(ctx)
	if s.cache != nil {
		g.Go(func() error {
			cacheRes = resultOf(s.cache.Ping(gctx))
			return nil
		})
	}
	if s.index != nil {
		g.Go(func() error {
			indexRes = resultOf(s.index.Ping(gctx))
			return nil
		})
	}
	if s.store != nil {
		g.Go(func() error {
			storeRes = resultOf(s.store.Ping(gctx))
			return nil
		})
	}
	if s.embedding != nil {
		g.Go(func() error {
			embedRes = resultOf(s.embedding.HealthCheck(gctx))
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]CheckResult)
	if s.cache != nil {
		checks["cache"] = cacheRes
	}
	if s.index != nil {
		checks["vector_index"] = indexRes
	}
	if s.store != nil {
		checks["candidate_store"] = storeRes
	}
	if s.embedding != nil {
		checks["embedding"] = embedRes
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func resultOf(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
