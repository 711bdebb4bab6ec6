/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
)

// PostgreSQL error codes
const (
	uniqueViolationCode = "23505"
	checkViolationCode  = "23514"
	notNullViolation    = "23502"
)

// sqlState extracts the SQLSTATE from either driver's error type.
func sqlState(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}

// mapError translates a driver error for person id into the store's error taxonomy.
// Errors already in the taxonomy pass through unchanged.
func mapError(op string, id int64, err error) error {
	if err == nil {
		return nil
	}
	if errs.IsNotFound(err) || errs.IsDuplicateIdentifier(err) || errs.IsValidationError(err) ||
		errs.IsConcurrentModification(err) || errs.IsBackendUnavailable(err) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.NewNotFoundError(domain.EntityType, id)
	}

	if code, constraint, ok := sqlState(err); ok {
		switch code {
		case uniqueViolationCode:
			return errs.NewDuplicateIdentifierError(domain.EntityType, id)
		case checkViolationCode, notNullViolation:
			return errs.NewValidationError(constraint, err.Error())
		}
	}

	return errs.NewBackendUnavailableError(string(datastore.Postgres), op, err)
}
