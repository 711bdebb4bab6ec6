/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/storagemodels"
)

const personColumns = "id, name, birth_date, death_date, data, revision"

const (
	allocateIDQuery = `SELECT nextval(pg_get_serial_sequence('person', 'id'))`

	insertQuery = `INSERT INTO person (` + personColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	selectByIDQuery = `SELECT ` + personColumns + ` FROM person WHERE id = $1`

	updateQuery = `UPDATE person
		SET name = $1, birth_date = $2, death_date = $3, data = $4, revision = revision + 1
		WHERE id = $5 AND revision = $6`

	deleteQuery = `DELETE FROM person WHERE id = $1 AND revision = $2`

	revisionQuery = `SELECT revision FROM person WHERE id = $1`

	scanPageQuery = `SELECT ` + personColumns + ` FROM person WHERE id > $1 ORDER BY id LIMIT $2`
)

// querier is satisfied by *sql.Tx and *sql.DB.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// txEngine is the Engine bound to one SQL transaction.
type txEngine struct {
	q      querier
	logger *slog.Logger
}

var _ datastore.Engine = (*txEngine)(nil)

func (e *txEngine) AllocateID(ctx context.Context) (int64, error) {
	var id int64
	if err := e.q.QueryRowContext(ctx, allocateIDQuery).Scan(&id); err != nil {
		return 0, errs.NewBackendUnavailableError(string(datastore.Postgres), "allocate_id", err)
	}
	return id, nil
}

func (e *txEngine) Insert(ctx context.Context, p domain.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := e.q.ExecContext(ctx, insertQuery,
		p.ID, p.Name, p.BirthDate.String(), deathArg(p.DeathDate), p.Data, p.Revision)
	return mapError("insert", p.ID, err)
}

func (e *txEngine) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	p, err := scanPerson(e.q.QueryRowContext(ctx, selectByIDQuery, id))
	if err != nil {
		return nil, mapError("get_by_id", id, err)
	}
	return p, nil
}

func (e *txEngine) UpdateWithRevision(ctx context.Context, id, expected int64, mutate datastore.Mutator) (*domain.Person, error) {
	current, err := e.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Revision != expected {
		return nil, errs.NewConcurrentModificationError(domain.EntityType, id, expected, current.Revision)
	}

	if mutate != nil {
		if err := mutate(current); err != nil {
			return nil, err
		}
	}
	current.ID = id
	if err := current.Validate(); err != nil {
		return nil, err
	}

	result, err := e.q.ExecContext(ctx, updateQuery,
		current.Name, current.BirthDate.String(), deathArg(current.DeathDate), current.Data, id, expected)
	if err != nil {
		return nil, mapError("update_with_revision", id, err)
	}
	if err := e.checkSwapped(ctx, result, id, expected); err != nil {
		return nil, err
	}

	current.Revision = expected + 1
	return current, nil
}

func (e *txEngine) DeleteWithRevision(ctx context.Context, id, expected int64) error {
	result, err := e.q.ExecContext(ctx, deleteQuery, id, expected)
	if err != nil {
		return mapError("delete_with_revision", id, err)
	}
	return e.checkSwapped(ctx, result, id, expected)
}

// checkSwapped turns a zero-row compare-and-swap into NotFound or ConcurrentModification.
func (e *txEngine) checkSwapped(ctx context.Context, result sql.Result, id, expected int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errs.NewBackendUnavailableError(string(datastore.Postgres), "rows_affected", err)
	}
	if n > 0 {
		return nil
	}

	var actual int64
	if err := e.q.QueryRowContext(ctx, revisionQuery, id).Scan(&actual); err != nil {
		return mapError("revision", id, err)
	}
	return errs.NewConcurrentModificationError(domain.EntityType, id, expected, actual)
}

// Scan pages through the table by id. Each page is read completely before its rows
// are sent so the transaction's connection is free between pages. The stream must be
// drained before the unit of work returns.
func (e *txEngine) Scan(ctx context.Context, match datastore.Predicate, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[domain.Person] {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultCh := make(chan storagemodels.StreamResult[domain.Person], options.BufferSize)

	go func() {
		defer close(resultCh)

		progress := storagemodels.StreamProgress{StartTime: time.Now()}
		send := func(r storagemodels.StreamResult[domain.Person]) bool {
			select {
			case <-ctx.Done():
				return false
			case resultCh <- r:
				return true
			}
		}

		var cursor int64 = -1
		var index int64
		var failures int
		for {
			page, err := e.readPage(ctx, cursor, options.PageSize)
			if err != nil {
				err = mapError("scan", 0, err)
				progress.Errors = append(progress.Errors, err)
				if !options.Resume(err, failures) {
					send(storagemodels.StreamResult[domain.Person]{
						Error: err,
						Meta:  storagemodels.StreamMeta{Index: index, PageNumber: progress.PagesProcessed, Timestamp: time.Now()},
					})
					return
				}
				// the cursor still points at the last delivered id
				failures++
				if !storagemodels.Backoff(ctx, time.Duration(failures)*options.RetryBackoff) {
					return
				}
				continue
			}
			failures = 0
			progress.PagesProcessed++

			for _, p := range page {
				progress.ItemsProcessed++
				cursor = p.ID
				if !match.Matches(p) {
					continue
				}
				progress.ItemsMatched++
				if !send(storagemodels.StreamResult[domain.Person]{
					Item: p,
					Meta: storagemodels.StreamMeta{Index: index, PageNumber: progress.PagesProcessed, Timestamp: time.Now()},
				}) {
					return
				}
				index++
			}

			if options.ProgressHandler != nil {
				if elapsed := time.Since(progress.StartTime).Seconds(); elapsed > 0 {
					progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
				}
				progress.Cursor = fmt.Sprint(cursor)
				options.ProgressHandler(progress)
			}

			if int32(len(page)) < options.PageSize {
				return
			}
		}
	}()

	return resultCh
}

func (e *txEngine) readPage(ctx context.Context, after int64, limit int32) ([]domain.Person, error) {
	rows, err := e.q.QueryContext(ctx, scanPageQuery, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []domain.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, *p)
	}
	return page, rows.Err()
}

func scanPerson(row rowScanner) (*domain.Person, error) {
	var (
		p     domain.Person
		death sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Name, &p.BirthDate, &death, &p.Data, &p.Revision); err != nil {
		return nil, err
	}
	if death.Valid {
		d := strfmt.Date(death.Time)
		p.DeathDate = &d
	}
	return &p, nil
}

func deathArg(d *strfmt.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
