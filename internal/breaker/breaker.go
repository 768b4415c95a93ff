// Package breaker wraps sony/gobreaker with per-call timeouts and the
// domain error mapping shared by all external-service clients. Each
// client owns an independent Breaker so one failing dependency never
// trips another.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/domain"
)

// Defaults for breaker tuning.
const (
	DefaultFailureRatio = 0.6
	DefaultMinRequests  = 5
	DefaultWindow       = 60 * time.Second
	DefaultCooldown     = 30 * time.Second
)

// Config holds tuning for one breaker instance.
type Config struct {
	// Name identifies the protected service in logs and metrics.
	Name string
	// CallTimeout bounds each individual call, distinct from the pipeline deadline.
	CallTimeout time.Duration
	// FailureRatio is the error rate over the rolling window that trips the breaker.
	FailureRatio float64
	// MinRequests is the minimum call count before the ratio is considered.
	MinRequests uint32
	// Window is the rolling window over which failures are counted while closed.
	Window time.Duration
	// Cooldown is how long the breaker stays open before allowing a trial call.
	Cooldown time.Duration
}

func (c *Config) applyDefaults() {
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		c.FailureRatio = DefaultFailureRatio
	}
	if c.MinRequests == 0 {
		c.MinRequests = DefaultMinRequests
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
}

// Breaker guards calls to one external service.
type Breaker[T any] struct {
	name        string
	callTimeout time.Duration
	cb          *gobreaker.CircuitBreaker[T]
}

// New creates a breaker. stateGauge (label: service) may be nil; state values
// are 0 closed, 1 half-open, 2 open.
func New[T any](cfg Config, stateGauge *prometheus.GaugeVec, logger *zap.Logger) *Breaker[T] {
	cfg.applyDefaults()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1, // one trial call in half-open
		Interval:    cfg.Window,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A caller-side cancellation is not a service failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("service", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if stateGauge != nil {
				stateGauge.WithLabelValues(name).Set(stateValue(to))
			}
		},
	}

	if stateGauge != nil {
		stateGauge.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))
	}

	return &Breaker[T]{
		name:        cfg.Name,
		callTimeout: cfg.CallTimeout,
		cb:          gobreaker.NewCircuitBreaker[T](settings),
	}
}

// Do runs fn under the breaker with the per-call timeout applied to its
// context. Breaker-open fast-fails map to domain.ErrUpstreamUnavailable;
// a per-call timeout (with the parent context still live) maps to
// domain.ErrUpstreamTimeout.
func (b *Breaker[T]) Do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	out, err := b.cb.Execute(func() (T, error) {
		callCtx := ctx
		if b.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.callTimeout)
			defer cancel()
		}

		v, err := fn(callCtx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return v, fmt.Errorf("%s call: %w", b.name, domain.ErrUpstreamTimeout)
		}
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%s: %w", b.name, domain.ErrUpstreamUnavailable)
	}
	return out, err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
