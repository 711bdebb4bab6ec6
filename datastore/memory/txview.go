/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	"sort"
	"time"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/storagemodels"
)

// txView is the Engine bound to one unit of work. It runs with the store lock held,
// reads through the staged overlay and writes only to it.
type txView struct {
	store   *Store
	staged  map[int64]domain.Person
	deleted map[int64]struct{}
}

func newTxView(s *Store) *txView {
	return &txView{
		store:   s,
		staged:  make(map[int64]domain.Person),
		deleted: make(map[int64]struct{}),
	}
}

func (v *txView) apply() error {
	for id := range v.deleted {
		delete(v.store.data, id)
	}
	for id, p := range v.staged {
		v.store.data[id] = p
	}
	v.discard()
	return nil
}

func (v *txView) discard() error {
	v.staged = make(map[int64]domain.Person)
	v.deleted = make(map[int64]struct{})
	return nil
}

func (v *txView) lookup(id int64) (domain.Person, bool) {
	if p, ok := v.staged[id]; ok {
		return p, true
	}
	if _, gone := v.deleted[id]; gone {
		return domain.Person{}, false
	}
	p, ok := v.store.data[id]
	return p, ok
}

func (v *txView) AllocateID(ctx context.Context) (int64, error) {
	if err := v.store.fault(OpAllocateID); err != nil {
		return 0, err
	}
	return v.store.counter.Next(), nil
}

func (v *txView) Insert(ctx context.Context, p domain.Person) error {
	if err := v.store.fault(OpInsert); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := v.lookup(p.ID); exists {
		return errs.NewDuplicateIdentifierError(domain.EntityType, p.ID)
	}
	delete(v.deleted, p.ID)
	v.staged[p.ID] = p.Clone()
	return nil
}

func (v *txView) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	if err := v.store.fault(OpGetByID); err != nil {
		return nil, err
	}
	p, ok := v.lookup(id)
	if !ok {
		return nil, errs.NewNotFoundError(domain.EntityType, id)
	}
	c := p.Clone()
	return &c, nil
}

func (v *txView) UpdateWithRevision(ctx context.Context, id, expected int64, mutate datastore.Mutator) (*domain.Person, error) {
	if err := v.store.fault(OpUpdate); err != nil {
		return nil, err
	}
	current, ok := v.lookup(id)
	if !ok {
		return nil, errs.NewNotFoundError(domain.EntityType, id)
	}
	if current.Revision != expected {
		return nil, errs.NewConcurrentModificationError(domain.EntityType, id, expected, current.Revision)
	}

	next := current.Clone()
	if mutate != nil {
		if err := mutate(&next); err != nil {
			return nil, err
		}
	}
	next.ID = id
	next.Revision = expected + 1
	if err := next.Validate(); err != nil {
		return nil, err
	}

	v.staged[id] = next
	result := next.Clone()
	return &result, nil
}

func (v *txView) DeleteWithRevision(ctx context.Context, id, expected int64) error {
	if err := v.store.fault(OpDelete); err != nil {
		return err
	}
	current, ok := v.lookup(id)
	if !ok {
		return errs.NewNotFoundError(domain.EntityType, id)
	}
	if current.Revision != expected {
		return errs.NewConcurrentModificationError(domain.EntityType, id, expected, current.Revision)
	}
	delete(v.staged, id)
	v.deleted[id] = struct{}{}
	return nil
}

// Scan takes its snapshot while the unit of work holds the lock and streams it
// afterwards, so the channel stays valid after the unit of work returns.
func (v *txView) Scan(ctx context.Context, match datastore.Predicate, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[domain.Person] {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultCh := make(chan storagemodels.StreamResult[domain.Person], options.BufferSize)

	if err := v.store.fault(OpScan); err != nil {
		go func() {
			defer close(resultCh)
			select {
			case <-ctx.Done():
			case resultCh <- storagemodels.StreamResult[domain.Person]{Error: err, Meta: storagemodels.StreamMeta{Timestamp: time.Now()}}:
			}
		}()
		return resultCh
	}

	ids := make([]int64, 0, len(v.store.data)+len(v.staged))
	seen := make(map[int64]struct{}, cap(ids))
	for id := range v.store.data {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for id := range v.staged {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := int64(0)
	snapshot := make([]domain.Person, 0, len(ids))
	for _, id := range ids {
		p, ok := v.lookup(id)
		if !ok {
			continue
		}
		total++
		if match.Matches(p) {
			snapshot = append(snapshot, p.Clone())
		}
	}

	go func() {
		defer close(resultCh)
		start := time.Now()
		for i, p := range snapshot {
			select {
			case <-ctx.Done():
				return
			case resultCh <- storagemodels.StreamResult[domain.Person]{
				Item: p,
				Meta: storagemodels.StreamMeta{Index: int64(i), PageNumber: 1, Timestamp: time.Now()},
			}:
			}
		}
		if options.ProgressHandler != nil {
			options.ProgressHandler(storagemodels.StreamProgress{
				ItemsProcessed: total,
				ItemsMatched:   int64(len(snapshot)),
				PagesProcessed: 1,
				StartTime:      start,
			})
		}
	}()

	return resultCh
}
