/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	"github.com/suparena/personstore/events"
	"github.com/suparena/personstore/storagemodels"
)

// ListAll returns every person ordered by id. The listed snapshots are written
// to the cache after the scan, except for ids invalidated while it ran.
func (s *PersonService) ListAll(ctx context.Context) (_ []domain.Person, err error) {
	start := time.Now()
	var people []domain.Person
	defer func() { s.observe(OpListAll, start, err, "count", len(people)) }()

	mark := s.cache.Mark()
	people, err = s.collect(ctx, nil)
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.Person, len(people))
	for i, p := range people {
		snapshots[i] = p.Clone()
	}
	s.afterCommit(ctx, func(ctx context.Context) {
		for _, p := range snapshots {
			s.cache.Fill(ctx, p, mark)
		}
	})
	return people, nil
}

// Search returns the persons accepted by match, ordered by id.
func (s *PersonService) Search(ctx context.Context, match datastore.Predicate) (_ []domain.Person, err error) {
	start := time.Now()
	var people []domain.Person
	defer func() { s.observe(OpSearch, start, err, "count", len(people)) }()

	people, err = s.collect(ctx, match)
	return people, err
}

// collect drains a scan inside one unit of work. Stream errors abort the scan.
func (s *PersonService) collect(ctx context.Context, match datastore.Predicate, opts ...storagemodels.StreamOption) ([]domain.Person, error) {
	var people []domain.Person
	err := s.runner.RunInTransaction(ctx, func(ctx context.Context, e datastore.Engine) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		for result := range e.Scan(ctx, match, opts...) {
			if result.Error != nil {
				return result.Error
			}
			people = append(people, result.Item)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(people, func(i, j int) bool { return people[i].ID < people[j].ID })
	return people, nil
}

// BatchImport registers every person in one unit of work: all or none on the
// memory and postgres backends, sequential conditional writes on dynamodb.
// Nothing is written when any input is invalid.
func (s *PersonService) BatchImport(ctx context.Context, batch []NewPerson) (_ []domain.Person, err error) {
	start := time.Now()
	defer func() { s.observe(OpBatchImport, start, err, "size", len(batch)) }()

	candidates := make([]domain.Person, 0, len(batch))
	for i, np := range batch {
		p, err := domain.New(np.Name, np.BirthDate, np.DeathDate, np.Data)
		if err != nil {
			return nil, fmt.Errorf("batch entry %d: %w", i, err)
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var created []domain.Person
	err = s.runner.RunInTransaction(ctx, func(ctx context.Context, e datastore.Engine) error {
		created = created[:0]
		for _, c := range candidates {
			p, err := s.insertVerified(ctx, e, c)
			if err != nil {
				return err
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, func(ctx context.Context) {
		for _, p := range created {
			s.cache.Put(ctx, p)
			s.publish(ctx, events.New(events.PersonCreated, p))
		}
	})

	result := make([]domain.Person, len(created))
	for i, p := range created {
		result[i] = p.Clone()
	}
	return result, nil
}
