/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/suparena/personstore/cache"
	"github.com/suparena/personstore/datastore"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/events"
	"github.com/suparena/personstore/logging"
	"github.com/suparena/personstore/metrics"
)

// Operation names used in logs and metrics.
const (
	OpRegister    = "register"
	OpFind        = "find"
	OpUpdate      = "update"
	OpRecordDeath = "record_death"
	OpListAll     = "list_all"
	OpSearch      = "search"
	OpBatchImport = "batch_import"
	OpUnregister  = "unregister"
)

// PersonService is the backend-agnostic facade over person storage.
type PersonService struct {
	runner     datastore.Runner
	cache      *cache.Aside
	notifier   *events.Notifier
	dispatcher *events.Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a PersonService.
type Option func(*PersonService)

// WithCache sets the cache-aside layer. Without it every read hits the backend.
func WithCache(c *cache.Aside) Option {
	return func(s *PersonService) {
		s.cache = c
	}
}

// WithNotifier sets where committed state transitions are published.
func WithNotifier(n *events.Notifier) Option {
	return func(s *PersonService) {
		s.notifier = n
	}
}

// WithDispatcher runs post-commit effects on d instead of on the calling goroutine.
func WithDispatcher(d *events.Dispatcher) Option {
	return func(s *PersonService) {
		s.dispatcher = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *PersonService) {
		s.logger = logging.Component(l, "person_service")
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PersonService) {
		s.metrics = m
	}
}

// NewPersonService creates a service running its units of work on runner.
func NewPersonService(runner datastore.Runner, opts ...Option) *PersonService {
	s := &PersonService{
		runner: runner,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewAside(nil, s.logger, s.metrics)
	}
	if s.notifier == nil {
		s.notifier = events.NewNotifier(nil, s.logger, s.metrics)
	}
	return s
}

// Backend returns the backend the service runs on.
func (s *PersonService) Backend() datastore.Backend {
	return s.runner.Backend()
}

// Flush waits for post-commit effects submitted so far.
func (s *PersonService) Flush(ctx context.Context) error {
	if s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.Flush(ctx)
}

// afterCommit runs effect once the unit of work has committed.
func (s *PersonService) afterCommit(ctx context.Context, effect events.Effect) {
	if s.dispatcher != nil {
		if err := s.dispatcher.Submit(effect); err == nil {
			return
		}
	}
	effect(ctx)
}

// publish is an effect body; failures are already logged and counted by the notifier.
func (s *PersonService) publish(ctx context.Context, event *events.Event) {
	_ = s.notifier.Notify(ctx, event)
}

// observe logs and records the outcome of one operation.
func (s *PersonService) observe(op string, start time.Time, err error, attrs ...any) {
	elapsed := time.Since(start)
	s.metrics.RecordOperation(op, s.runner.Backend(), err, elapsed)

	attrs = append(attrs, "operation", op, "duration", elapsed)
	switch {
	case err == nil:
		s.logger.Info("operation completed", attrs...)
	case errs.IsBackendUnavailable(err):
		s.logger.Error("operation failed", append(attrs, "error", err)...)
	default:
		s.logger.Warn("operation rejected", append(attrs, "error", err)...)
	}
}

func validateID(id int64) error {
	if id < 0 {
		return errs.NewValidationError("id", "must not be negative")
	}
	return nil
}

func validateRevision(rev int64) error {
	if rev < 0 {
		return errs.NewValidationError("revision", "must not be negative")
	}
	return nil
}
