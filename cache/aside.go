/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/suparena/personstore/domain"
	"github.com/suparena/personstore/logging"
	"github.com/suparena/personstore/metrics"
)

// Loader reads a person from the authoritative backend.
type Loader func(ctx context.Context, id int64) (*domain.Person, error)

// Aside applies the cache-aside policy over a Store.
//
// Snapshots read from the backend are written back with Fill, which refuses a
// snapshot whose id was invalidated after the read began. Every Invalidate
// stamps the id with the next tick of a local clock; Mark reads the clock.
type Aside struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	loads   singleflight.Group

	mu          sync.Mutex
	clock       uint64
	invalidated map[int64]uint64
}

// NewAside wraps store. A nil store disables caching.
func NewAside(store Store, logger *slog.Logger, m *metrics.Metrics) *Aside {
	if store == nil {
		store = NopStore{}
	}
	return &Aside{
		store:       store,
		logger:      logging.Component(logger, "cache"),
		metrics:     m,
		invalidated: make(map[int64]uint64),
	}
}

// Get probes the cache and falls back to load on a miss or a cache failure.
// A loaded person is written back to the cache. Concurrent misses for one id share a load.
func (a *Aside) Get(ctx context.Context, id int64, load Loader) (*domain.Person, error) {
	cached, err := a.store.Get(ctx, id)
	switch {
	case err != nil:
		a.metrics.RecordCache(metrics.CacheError)
		a.logger.Warn("cache read failed", "id", id, "error", err)
	case cached != nil:
		a.metrics.RecordCache(metrics.CacheHit)
		a.logger.Debug("cache hit", "id", id)
		return cached, nil
	default:
		a.metrics.RecordCache(metrics.CacheMiss)
		a.logger.Debug("cache miss", "id", id)
	}

	v, err, _ := a.loads.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		mark := a.Mark()
		p, err := load(ctx, id)
		if err != nil {
			return nil, err
		}
		a.Fill(ctx, *p, mark)
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	p := v.(domain.Person).Clone()
	return &p, nil
}

// Mark returns the current position of the invalidation clock. Take it before
// reading the snapshots that will be passed to Fill.
func (a *Aside) Mark() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clock
}

// Fill caches p unless p.ID was invalidated after mark. It reports whether p was written.
func (a *Aside) Fill(ctx context.Context, p domain.Person, mark uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.invalidated[p.ID] > mark {
		a.logger.Debug("dropped stale cache fill", "id", p.ID, "revision", p.Revision)
		return false
	}
	a.Put(ctx, p)
	return true
}

// Put overwrites the cached snapshot of p.
func (a *Aside) Put(ctx context.Context, p domain.Person) {
	if err := a.store.Set(ctx, p); err != nil {
		a.metrics.RecordCache(metrics.CacheError)
		a.logger.Warn("cache write failed", "id", p.ID, "error", err)
	}
}

// Invalidate removes the cached snapshot of id. Fills of snapshots read before
// the call are refused afterwards.
func (a *Aside) Invalidate(ctx context.Context, id int64) {
	a.mu.Lock()
	a.clock++
	a.invalidated[id] = a.clock
	a.mu.Unlock()

	if err := a.store.Delete(ctx, id); err != nil {
		a.metrics.RecordCache(metrics.CacheError)
		a.logger.Warn("cache invalidation failed", "id", id, "error", err)
	}
}

// Store returns the wrapped store.
func (a *Aside) Store() Store {
	return a.store
}

// Close closes the wrapped store.
func (a *Aside) Close() error {
	return a.store.Close()
}
