/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	"fmt"

	"github.com/suparena/personstore/domain"
)

// Store is a key/value store for person snapshots. It is never authoritative.
type Store interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, id int64) (*domain.Person, error)
	// Set overwrites the entry for p.ID.
	Set(ctx context.Context, p domain.Person) error
	// Delete removes the entry for id. Deleting a missing entry is not an error.
	Delete(ctx context.Context, id int64) error
	Close() error
}

// Key returns the cache key of a person, e.g. "person:3".
func Key(id int64) string {
	return fmt.Sprintf("%s:%d", domain.EntityType, id)
}

// NopStore caches nothing. Every Get is a miss.
type NopStore struct{}

var _ Store = NopStore{}

func (NopStore) Get(context.Context, int64) (*domain.Person, error) { return nil, nil }
func (NopStore) Set(context.Context, domain.Person) error           { return nil }
func (NopStore) Delete(context.Context, int64) error                { return nil }
func (NopStore) Close() error                                       { return nil }
