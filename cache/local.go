/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
)

// LocalOptions configures a LocalStore.
type LocalOptions struct {
	// Capacity is the maximum number of cached persons.
	Capacity int
	// NumShards splits the cache for concurrent access. Default: 64
	NumShards int
	// TTL must be greater than 0.
	TTL time.Duration
	// EvictionPercentage of entries dropped when the cache is full. Default: 10
	EvictionPercentage int
}

// DefaultLocalOptions returns options suitable for a single process.
func DefaultLocalOptions() LocalOptions {
	return LocalOptions{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks the option values.
func (o LocalOptions) Validate() error {
	switch {
	case o.Capacity <= 0:
		return errs.NewValidationError("cache.capacity", "must be greater than 0")
	case o.NumShards <= 0:
		return errs.NewValidationError("cache.shards", "must be greater than 0")
	case o.TTL <= 0:
		return errs.NewValidationError("cache.ttl", "must be greater than 0")
	case o.EvictionPercentage < 1 || o.EvictionPercentage > 100:
		return errs.NewValidationError("cache.eviction_percentage", "must be between 1 and 100")
	}
	return nil
}

// LocalStore is an in-process Store backed by sturdyc.
type LocalStore struct {
	client *sturdyc.Client[domain.Person]
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a LocalStore.
func NewLocalStore(opts LocalOptions) (*LocalStore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[domain.Person](opts.Capacity, opts.NumShards, opts.TTL, opts.EvictionPercentage)
	return &LocalStore{client: client}, nil
}

// Get implements Store. The returned person is a copy.
func (s *LocalStore) Get(_ context.Context, id int64) (*domain.Person, error) {
	p, ok := s.client.Get(Key(id))
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

// Set implements Store.
func (s *LocalStore) Set(_ context.Context, p domain.Person) error {
	s.client.Set(Key(p.ID), p.Clone())
	return nil
}

// Delete implements Store.
func (s *LocalStore) Delete(_ context.Context, id int64) error {
	s.client.Delete(Key(id))
	return nil
}

// Size returns the number of cached entries.
func (s *LocalStore) Size() int {
	return s.client.Size()
}

// Close implements Store.
func (s *LocalStore) Close() error {
	return nil
}
