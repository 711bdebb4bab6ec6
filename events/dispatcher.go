/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/suparena/personstore/logging"
)

// ErrDispatcherClosed is returned when submitting to a closed Dispatcher.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// DefaultQueueSize is used when NewDispatcher gets a non-positive size.
const DefaultQueueSize = 256

// DefaultEffectTimeout bounds a single side effect.
const DefaultEffectTimeout = 5 * time.Second

// Effect is a post-commit side effect such as a cache write or an event publish.
type Effect func(ctx context.Context)

type job struct {
	effect Effect
	// flushed is closed when the worker reaches a flush marker
	flushed chan struct{}
}

// Dispatcher runs effects on a single worker in FIFO order, so effects submitted
// for one entity after successive commits keep their commit order.
type Dispatcher struct {
	queue   chan job
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts a dispatcher with a queue of size entries.
func NewDispatcher(size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	d := &Dispatcher{
		queue:   make(chan job, size),
		logger:  logging.Component(logger, "dispatcher"),
		timeout: DefaultEffectTimeout,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for j := range d.queue {
		if j.flushed != nil {
			close(j.flushed)
			continue
		}
		d.execute(j.effect)
	}
}

func (d *Dispatcher) execute(effect Effect) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("side effect panicked", "panic", r)
		}
	}()
	effect(ctx)
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	d.queue <- j
	return nil
}

// Submit queues effect. It blocks while the queue is full.
func (d *Dispatcher) Submit(effect Effect) error {
	if effect == nil {
		return nil
	}
	return d.enqueue(job{effect: effect})
}

// Flush waits until every effect submitted before the call has run.
func (d *Dispatcher) Flush(ctx context.Context) error {
	marker := make(chan struct{})
	if err := d.enqueue(job{flushed: marker}); err != nil {
		return err
	}
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting effects, runs the queued ones and stops the worker.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
	return nil
}
