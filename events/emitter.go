/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/suparena/personstore/logging"
)

// Emitter fans an event out to every registered publisher.
type Emitter struct {
	publishers []Publisher
	mu         sync.RWMutex
	logger     *slog.Logger
}

var _ Publisher = (*Emitter)(nil)

// NewEmitter creates an Emitter with the given publishers.
func NewEmitter(logger *slog.Logger, publishers ...Publisher) *Emitter {
	return &Emitter{
		publishers: append([]Publisher(nil), publishers...),
		logger:     logging.Component(logger, "event_emitter"),
	}
}

// Register adds a publisher.
func (e *Emitter) Register(p Publisher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publishers = append(e.publishers, p)
	e.logger.Debug("registered event publisher", "publisher_count", len(e.publishers))
}

// Len returns the number of registered publishers.
func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.publishers)
}

// Publish sends event to every publisher. A failing publisher does not stop the
// others; the first error is returned.
func (e *Emitter) Publish(ctx context.Context, event *Event) error {
	e.mu.RLock()
	publishers := make([]Publisher, len(e.publishers))
	copy(publishers, e.publishers)
	e.mu.RUnlock()

	var firstErr error
	for i, p := range publishers {
		if err := p.Publish(ctx, event); err != nil {
			e.logger.Error("publisher failed to deliver event",
				"error", err,
				"publisher_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close closes every registered publisher that holds resources.
func (e *Emitter) Close() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var errList []error
	for _, p := range e.publishers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errList = append(errList, err)
			}
		}
	}
	return errors.Join(errList...)
}
