/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/personstore/domain"
	"github.com/suparena/personstore/storagemodels"
)

// Backend names one member of the closed set of storage engines.
type Backend string

const (
	Memory   Backend = "memory"
	Postgres Backend = "postgres"
	DynamoDB Backend = "dynamodb"
)

// Backends lists every supported backend.
var Backends = []Backend{Memory, Postgres, DynamoDB}

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	for _, known := range Backends {
		if b == known {
			return true
		}
	}
	return false
}

// Mutator changes a person in place during a compare-and-swap update.
type Mutator func(p *domain.Person) error

// Predicate selects persons during a scan. A nil Predicate matches everything.
type Predicate func(p domain.Person) bool

// Engine is the capability set every backend adapter provides. Engines handed to a
// UnitOfWork are bound to that unit of work and must not be retained after it returns.
type Engine interface {
	// AllocateID returns the next unique id for a person.
	AllocateID(ctx context.Context) (int64, error)

	// Insert persists a new person. Fails with DuplicateIdentifier if the id exists.
	Insert(ctx context.Context, p domain.Person) error

	// GetByID fails with NotFound when no person has the id.
	GetByID(ctx context.Context, id int64) (*domain.Person, error)

	// UpdateWithRevision applies mutate if the stored revision equals expected and
	// stores the result with revision expected+1. Fails with ConcurrentModification otherwise.
	UpdateWithRevision(ctx context.Context, id, expected int64, mutate Mutator) (*domain.Person, error)

	// DeleteWithRevision removes the person if the stored revision equals expected.
	DeleteWithRevision(ctx context.Context, id, expected int64) error

	// Scan lazily streams the persons accepted by match. The channel is closed when
	// the scan ends or ctx is cancelled.
	Scan(ctx context.Context, match Predicate, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[domain.Person]
}

// UnitOfWork is the body of a transaction. Returning an error rolls it back.
type UnitOfWork func(ctx context.Context, engine Engine) error

// Runner executes units of work with all-or-nothing effect against one backend.
type Runner interface {
	Backend() Backend
	RunInTransaction(ctx context.Context, work UnitOfWork) error
	Close() error
}

// Matches applies a possibly nil predicate.
func (m Predicate) Matches(p domain.Person) bool {
	return m == nil || m(p)
}
