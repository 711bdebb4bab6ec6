/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides a scriptable Engine and Runner for testing
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	"github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/logging"
	"github.com/suparena/personstore/storagemodels"
)

// Engine is a map-backed datastore.Engine whose operations can be overridden or failed.
// Writes are not staged; use the memory engine for transactional behaviour.
type Engine struct {
	mu     sync.Mutex
	data   map[int64]domain.Person
	nextID int64
	calls  []string

	getFunc     func(ctx context.Context, id int64) (*domain.Person, error)
	scanFunc    func(ctx context.Context, match datastore.Predicate, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[domain.Person]
	allocError  error
	insertError error
	getError    error
	updateError error
	deleteError error
}

var _ datastore.Engine = (*Engine)(nil)

// New creates a new mock Engine
func New() *Engine {
	return &Engine{data: make(map[int64]domain.Person)}
}

// WithGetFunc replaces GetByID
func (m *Engine) WithGetFunc(f func(ctx context.Context, id int64) (*domain.Person, error)) *Engine {
	m.getFunc = f
	return m
}

// WithScanFunc replaces Scan
func (m *Engine) WithScanFunc(f func(ctx context.Context, match datastore.Predicate, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[domain.Person]) *Engine {
	m.scanFunc = f
	return m
}

// WithAllocateError makes AllocateID return an error
func (m *Engine) WithAllocateError(err error) *Engine {
	m.allocError = err
	return m
}

// WithInsertError makes Insert return an error
func (m *Engine) WithInsertError(err error) *Engine {
	m.insertError = err
	return m
}

// WithGetError makes GetByID return an error
func (m *Engine) WithGetError(err error) *Engine {
	m.getError = err
	return m
}

// WithUpdateError makes UpdateWithRevision return an error
func (m *Engine) WithUpdateError(err error) *Engine {
	m.updateError = err
	return m
}

// WithDeleteError makes DeleteWithRevision return an error
func (m *Engine) WithDeleteError(err error) *Engine {
	m.deleteError = err
	return m
}

func (m *Engine) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
}

// AllocateID hands out 0, 1, 2, ...
func (m *Engine) AllocateID(ctx context.Context) (int64, error) {
	m.record("AllocateID")
	if m.allocError != nil {
		return 0, m.allocError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id, nil
}

// Insert stores p
func (m *Engine) Insert(ctx context.Context, p domain.Person) error {
	m.record("Insert")
	if m.insertError != nil {
		return m.insertError
	}
	if err := p.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[p.ID]; exists {
		return errors.NewDuplicateIdentifierError(domain.EntityType, p.ID)
	}
	m.data[p.ID] = p.Clone()
	return nil
}

// GetByID retrieves a person by id
func (m *Engine) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	m.record("GetByID")
	if m.getError != nil {
		return nil, m.getError
	}
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, exists := m.data[id]; exists {
		c := p.Clone()
		return &c, nil
	}
	return nil, errors.NewNotFoundError(domain.EntityType, id)
}

// UpdateWithRevision applies mutate when the revision matches
func (m *Engine) UpdateWithRevision(ctx context.Context, id, expected int64, mutate datastore.Mutator) (*domain.Person, error) {
	m.record("UpdateWithRevision")
	if m.updateError != nil {
		return nil, m.updateError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.data[id]
	if !exists {
		return nil, errors.NewNotFoundError(domain.EntityType, id)
	}
	if current.Revision != expected {
		return nil, errors.NewConcurrentModificationError(domain.EntityType, id, expected, current.Revision)
	}
	next := current.Clone()
	if mutate != nil {
		if err := mutate(&next); err != nil {
			return nil, err
		}
	}
	next.ID, next.Revision = id, expected+1
	if err := next.Validate(); err != nil {
		return nil, err
	}
	m.data[id] = next
	result := next.Clone()
	return &result, nil
}

// DeleteWithRevision removes a person when the revision matches
func (m *Engine) DeleteWithRevision(ctx context.Context, id, expected int64) error {
	m.record("DeleteWithRevision")
	if m.deleteError != nil {
		return m.deleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.data[id]
	if !exists {
		return errors.NewNotFoundError(domain.EntityType, id)
	}
	if current.Revision != expected {
		return errors.NewConcurrentModificationError(domain.EntityType, id, expected, current.Revision)
	}
	delete(m.data, id)
	return nil
}

// Scan streams all matching persons in id order
func (m *Engine) Scan(ctx context.Context, match datastore.Predicate, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[domain.Person] {
	m.record("Scan")
	if m.scanFunc != nil {
		return m.scanFunc(ctx, match, opts...)
	}

	m.mu.Lock()
	snapshot := make([]domain.Person, 0, len(m.data))
	for _, p := range m.data {
		if match.Matches(p) {
			snapshot = append(snapshot, p.Clone())
		}
	}
	m.mu.Unlock()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })

	resultChan := make(chan storagemodels.StreamResult[domain.Person], 10)
	go func() {
		defer close(resultChan)
		for i, p := range snapshot {
			select {
			case <-ctx.Done():
				return
			case resultChan <- storagemodels.StreamResult[domain.Person]{
				Item: p,
				Meta: storagemodels.StreamMeta{Index: int64(i), PageNumber: 1},
			}:
			}
		}
	}()
	return resultChan
}

// Helper methods for testing

// SetData directly sets the stored persons (for testing)
func (m *Engine) SetData(people ...domain.Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[int64]domain.Person, len(people))
	for _, p := range people {
		m.data[p.ID] = p.Clone()
		if p.ID >= m.nextID {
			m.nextID = p.ID + 1
		}
	}
}

// GetData returns a copy of the stored persons (for testing)
func (m *Engine) GetData() map[int64]domain.Person {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[int64]domain.Person, len(m.data))
	for k, v := range m.data {
		result[k] = v.Clone()
	}
	return result
}

// Calls returns the engine operations invoked so far, in order
func (m *Engine) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Runner runs every unit of work against one Engine and counts outcomes.
type Runner struct {
	Engine  datastore.Engine
	backend datastore.Backend

	mu        sync.Mutex
	commits   int
	rollbacks int
	commitErr error
}

var _ datastore.Runner = (*Runner)(nil)

// NewRunner wraps engine. The runner reports itself as the memory backend.
func NewRunner(engine datastore.Engine) *Runner {
	return &Runner{Engine: engine, backend: datastore.Memory}
}

// WithBackend changes the reported backend
func (r *Runner) WithBackend(b datastore.Backend) *Runner {
	r.backend = b
	return r
}

// WithCommitError makes every commit fail
func (r *Runner) WithCommitError(err error) *Runner {
	r.commitErr = err
	return r
}

// Backend implements datastore.Runner
func (r *Runner) Backend() datastore.Backend {
	return r.backend
}

// RunInTransaction implements datastore.Runner
func (r *Runner) RunInTransaction(ctx context.Context, work datastore.UnitOfWork) error {
	tx := datastore.NewTransaction(r.backend, nil)
	if err := tx.Begin(); err != nil {
		return err
	}
	return datastore.Execute(ctx, tx, logging.Discard(), r.Engine, work, datastore.Hooks{
		Commit: func() error {
			if r.commitErr != nil {
				return r.commitErr
			}
			r.mu.Lock()
			r.commits++
			r.mu.Unlock()
			return nil
		},
		Rollback: func() error {
			r.mu.Lock()
			r.rollbacks++
			r.mu.Unlock()
			return nil
		},
	})
}

// Close implements datastore.Runner
func (r *Runner) Close() error {
	return nil
}

// Commits returns the number of committed units of work
func (r *Runner) Commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

// Rollbacks returns the number of rolled back units of work
func (r *Runner) Rollbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rollbacks
}
