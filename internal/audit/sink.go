// Package audit records completed searches out of band. The sink is
// fire-and-forget: a full worker pool or a failed write drops the event
// with a log line and never blocks the request path.
package audit

import (
	"errors"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/usecase/search"
)

// DefaultWorkers is the audit pool size when none is configured.
const DefaultWorkers = 4

// Writer persists one audit event. Implementations may block; the sink
// calls them from pool workers only.
type Writer interface {
	Write(ev search.AuditEvent) error
}

// Sink dispatches audit events onto a bounded worker pool.
type Sink struct {
	pool   *ants.Pool
	writer Writer
	logger *zap.Logger
}

// NewSink creates a Sink with workers pool slots. The pool is non-blocking:
// submissions beyond capacity are dropped, not queued.
func NewSink(writer Writer, workers int, logger *zap.Logger) (*Sink, error) {
	if workers < 1 {
		workers = DefaultWorkers
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Sink{pool: pool, writer: writer, logger: logger}, nil
}

// Record submits ev for asynchronous persistence. Overload and write
// failures are swallowed after logging.
func (s *Sink) Record(ev search.AuditEvent) {
	err := s.pool.Submit(func() {
		if werr := s.writer.Write(ev); werr != nil {
			s.logger.Warn("audit write failed",
				zap.String("query", ev.Query),
				zap.Error(werr),
			)
		}
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			s.logger.Debug("audit pool full, dropping event",
				zap.String("query", ev.Query),
			)
			return
		}
		s.logger.Warn("audit submit failed",
			zap.String("query", ev.Query),
			zap.Error(err),
		)
	}
}

// Close releases the worker pool. Pending events may be dropped.
func (s *Sink) Close() {
	s.pool.Release()
}

// LogWriter writes audit events to the service log. It is the default
// Writer when no external sink is configured.
type LogWriter struct {
	Logger *zap.Logger
}

// Write logs the event at info level.
func (w *LogWriter) Write(ev search.AuditEvent) error {
	w.Logger.Info("search audit",
		zap.String("query", ev.Query),
		zap.String("cache", string(ev.CacheStatus)),
		zap.Int("results", ev.Results),
		zap.Duration("duration", ev.Duration),
	)
	return nil
}
