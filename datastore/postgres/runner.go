/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package postgres implements the relational storage engine on database/sql.
// Units of work map onto native SQL transactions; lost updates are prevented by a
// compare-and-swap on the revision column.
package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/suparena/personstore/datastore"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/logging"
)

// Runner runs units of work inside SQL transactions.
type Runner struct {
	db       *sql.DB
	logger   *slog.Logger
	observer datastore.TxObserver
	txOpts   *sql.TxOptions
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.Component(l, "postgres_store")
	}
}

// WithTxObserver reports terminal transaction states.
func WithTxObserver(o datastore.TxObserver) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithTxOptions sets the isolation level and read-only flag of every transaction.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(r *Runner) {
		r.txOpts = opts
	}
}

// NewRunner wraps an open pool. The runner owns db and closes it in Close.
func NewRunner(db *sql.DB, opts ...Option) *Runner {
	r := &Runner{db: db, logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend implements datastore.Runner.
func (r *Runner) Backend() datastore.Backend {
	return datastore.Postgres
}

// RunInTransaction begins a transaction, runs work against it and commits when work
// succeeds. Any error or panic rolls the transaction back.
func (r *Runner) RunInTransaction(ctx context.Context, work datastore.UnitOfWork) error {
	sqlTx, err := r.db.BeginTx(ctx, r.txOpts)
	if err != nil {
		return errs.NewBackendUnavailableError(string(datastore.Postgres), "begin", err)
	}

	tx := datastore.NewTransaction(datastore.Postgres, r.observer)
	if err := tx.Begin(); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	engine := &txEngine{q: sqlTx, logger: r.logger}
	return datastore.Execute(ctx, tx, r.logger, engine, work, datastore.Hooks{
		Commit: func() error {
			if err := sqlTx.Commit(); err != nil {
				return errs.NewBackendUnavailableError(string(datastore.Postgres), "commit", err)
			}
			return nil
		},
		Rollback: sqlTx.Rollback,
	})
}

// DB exposes the pool for migrations.
func (r *Runner) DB() *sql.DB {
	return r.db
}

// Close closes the pool.
func (r *Runner) Close() error {
	return r.db.Close()
}
