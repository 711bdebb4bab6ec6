/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package memory provides the in-memory storage engine. Every unit of work runs
// under one exclusive lock and its writes are staged until commit.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/logging"
)

// Op names an engine operation for fault injection.
type Op string

const (
	OpAllocateID Op = "allocate_id"
	OpInsert     Op = "insert"
	OpGetByID    Op = "get_by_id"
	OpUpdate     Op = "update_with_revision"
	OpDelete     Op = "delete_with_revision"
	OpScan       Op = "scan"
)

// Store is the in-memory runner. The zero value is not usable; call New.
type Store struct {
	mu       sync.Mutex
	data     map[int64]domain.Person
	counter  *Counter
	faults   map[Op]error
	logger   *slog.Logger
	observer datastore.TxObserver
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.Component(l, "memory_store")
	}
}

// WithTxObserver reports terminal transaction states, typically to metrics.
func WithTxObserver(o datastore.TxObserver) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// New creates a store that allocates ids from counter. A nil counter starts at 1.
func New(counter *Counter, opts ...Option) *Store {
	if counter == nil {
		counter = NewCounter(1)
	}
	s := &Store{
		data:    make(map[int64]domain.Person),
		counter: counter,
		faults:  make(map[Op]error),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend implements datastore.Runner.
func (s *Store) Backend() datastore.Backend {
	return datastore.Memory
}

// RunInTransaction runs work while holding the store lock. Staged writes are
// applied only when work succeeds.
func (s *Store) RunInTransaction(ctx context.Context, work datastore.UnitOfWork) error {
	if err := ctx.Err(); err != nil {
		return errs.NewBackendUnavailableError(string(datastore.Memory), "begin", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := datastore.NewTransaction(datastore.Memory, s.observer)
	if err := tx.Begin(); err != nil {
		return err
	}

	view := newTxView(s)
	return datastore.Execute(ctx, tx, s.logger, view, work, datastore.Hooks{
		Commit:   view.apply,
		Rollback: view.discard,
	})
}

// Close implements datastore.Runner.
func (s *Store) Close() error {
	return nil
}

// InjectFault makes every later call of op fail with a BackendUnavailable error wrapping err.
func (s *Store) InjectFault(op Op, err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
	return s
}

// ClearFaults removes all injected faults.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[Op]error)
}

// Snapshot returns a copy of the committed data.
func (s *Store) Snapshot() map[int64]domain.Person {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[int64]domain.Person, len(s.data))
	for k, v := range s.data {
		result[k] = v.Clone()
	}
	return result
}

// Count returns the number of committed persons.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Counter returns the injected id counter.
func (s *Store) Counter() *Counter {
	return s.counter
}

// fault must be called with s.mu held.
func (s *Store) fault(op Op) error {
	if err, ok := s.faults[op]; ok {
		return errs.NewBackendUnavailableError(string(datastore.Memory), string(op), err)
	}
	return nil
}
