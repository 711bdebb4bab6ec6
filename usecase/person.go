/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/events"
)

// ErrVerificationFailed means a person read back right after its insert differed
// from what was written.
var ErrVerificationFailed = errors.New("stored person differs from the inserted one")

// NewPerson holds the fields of a person to register.
type NewPerson struct {
	Name      string
	BirthDate strfmt.Date
	DeathDate *strfmt.Date
	Data      []byte
}

// Register allocates an id, inserts the person and reads it back in one unit of work.
// After the commit the cache is seeded and person.created is published.
func (s *PersonService) Register(ctx context.Context, name string, birth strfmt.Date, death *strfmt.Date, data []byte) (_ *domain.Person, err error) {
	start := time.Now()
	var created domain.Person
	defer func() { s.observe(OpRegister, start, err, "id", created.ID) }()

	candidate, err := domain.New(name, birth, death, data)
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTransaction(ctx, func(ctx context.Context, e datastore.Engine) error {
		p, err := s.insertVerified(ctx, e, candidate)
		if err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, func(ctx context.Context) {
		s.cache.Put(ctx, created)
		s.publish(ctx, events.New(events.PersonCreated, created))
	})
	result := created.Clone()
	return &result, nil
}

// insertVerified allocates an id for candidate, inserts it and checks the stored copy.
func (s *PersonService) insertVerified(ctx context.Context, e datastore.Engine, candidate domain.Person) (domain.Person, error) {
	id, err := e.AllocateID(ctx)
	if err != nil {
		return domain.Person{}, err
	}
	p := candidate.Clone()
	p.ID, p.Revision = id, 0

	if err := e.Insert(ctx, p); err != nil {
		return domain.Person{}, err
	}
	stored, err := e.GetByID(ctx, id)
	if err != nil {
		return domain.Person{}, err
	}
	if !stored.Equal(p) {
		return domain.Person{}, errs.NewBackendUnavailableError(string(s.runner.Backend()), "verify", ErrVerificationFailed)
	}
	return *stored, nil
}

// Find returns the person with id, from the cache when possible.
func (s *PersonService) Find(ctx context.Context, id int64) (_ *domain.Person, err error) {
	start := time.Now()
	defer func() { s.observe(OpFind, start, err, "id", id) }()

	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, id, s.load)
}

// load reads a person from the backend in its own unit of work.
func (s *PersonService) load(ctx context.Context, id int64) (*domain.Person, error) {
	var found *domain.Person
	err := s.runner.RunInTransaction(ctx, func(ctx context.Context, e datastore.Engine) error {
		p, err := e.GetByID(ctx, id)
		found = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Update applies patch if the stored revision is still expectedRevision. After the
// commit the cached copy is invalidated and person.updated is published.
func (s *PersonService) Update(ctx context.Context, id, expectedRevision int64, patch domain.Patch) (_ *domain.Person, err error) {
	start := time.Now()
	defer func() { s.observe(OpUpdate, start, err, "id", id, "expected_revision", expectedRevision) }()

	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, expectedRevision, patch.Apply)
}

// RecordDeath sets the death date through the same compare-and-swap path as Update.
func (s *PersonService) RecordDeath(ctx context.Context, id, expectedRevision int64, date strfmt.Date) (_ *domain.Person, err error) {
	start := time.Now()
	defer func() { s.observe(OpRecordDeath, start, err, "id", id, "expected_revision", expectedRevision) }()

	if time.Time(date).IsZero() {
		return nil, errs.NewValidationError("death_date", "is required")
	}
	return s.mutate(ctx, id, expectedRevision, func(p *domain.Person) error {
		return p.Died(date)
	})
}

func (s *PersonService) mutate(ctx context.Context, id, expectedRevision int64, mutator datastore.Mutator) (*domain.Person, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := validateRevision(expectedRevision); err != nil {
		return nil, err
	}

	var updated domain.Person
	err := s.runner.RunInTransaction(ctx, func(ctx context.Context, e datastore.Engine) error {
		p, err := e.UpdateWithRevision(ctx, id, expectedRevision, mutator)
		if err != nil {
			return err
		}
		updated = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, func(ctx context.Context) {
		s.cache.Invalidate(ctx, id)
		s.publish(ctx, events.New(events.PersonUpdated, updated))
	})
	result := updated.Clone()
	return &result, nil
}

// Unregister deletes the person if the stored revision is still expectedRevision.
// After the commit the cached copy is invalidated and person.deleted is published.
func (s *PersonService) Unregister(ctx context.Context, id, expectedRevision int64) (err error) {
	start := time.Now()
	defer func() { s.observe(OpUnregister, start, err, "id", id, "expected_revision", expectedRevision) }()

	if err := validateID(id); err != nil {
		return err
	}
	if err := validateRevision(expectedRevision); err != nil {
		return err
	}

	err = s.runner.RunInTransaction(ctx, func(ctx context.Context, e datastore.Engine) error {
		return e.DeleteWithRevision(ctx, id, expectedRevision)
	})
	if err != nil {
		return err
	}

	s.afterCommit(ctx, func(ctx context.Context) {
		s.cache.Invalidate(ctx, id)
		s.publish(ctx, events.NewDeleted(id, expectedRevision))
	})
	return nil
}

// validatePatch rejects patches that cannot produce a valid person, before any
// storage call is made.
func validatePatch(patch domain.Patch) error {
	if patch.IsEmpty() {
		return errs.NewValidationError("patch", "changes no field")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return errs.NewValidationError("name", "must not be empty")
	}
	if patch.BirthDate != nil && time.Time(*patch.BirthDate).IsZero() {
		return errs.NewValidationError("birth_date", "is required")
	}
	if patch.DeathDate != nil && patch.ClearDeathDate {
		return errs.NewValidationError("death_date", "cannot both set and clear")
	}
	if patch.BirthDate != nil && patch.DeathDate != nil &&
		time.Time(*patch.DeathDate).Before(time.Time(*patch.BirthDate)) {
		return errs.NewValidationError("death_date", "is before birth date")
	}
	return nil
}
