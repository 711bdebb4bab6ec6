/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// TxState is a position in the transaction state machine
// Idle → Running → {Committed, RolledBack}.
type TxState int32

const (
	TxIdle TxState = iota
	TxRunning
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxRunning:
		return "running"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("TxState(%d)", int32(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s TxState) Terminal() bool {
	return s == TxCommitted || s == TxRolledBack
}

// ErrInvalidTransition is returned when a transaction is moved out of order.
var ErrInvalidTransition = errors.New("invalid transaction state transition")

// TxObserver is told about every terminal state a transaction reaches.
type TxObserver func(backend Backend, state TxState)

var txSeq atomic.Uint64

// Transaction tracks one unit of work through the state machine.
type Transaction struct {
	ID       uint64
	backend  Backend
	state    atomic.Int32
	observer TxObserver
}

// NewTransaction returns an idle transaction for backend.
func NewTransaction(backend Backend, observer TxObserver) *Transaction {
	return &Transaction{
		ID:       txSeq.Add(1),
		backend:  backend,
		observer: observer,
	}
}

// State returns the current state.
func (t *Transaction) State() TxState {
	return TxState(t.state.Load())
}

// Begin moves Idle → Running.
func (t *Transaction) Begin() error {
	return t.transition(TxIdle, TxRunning)
}

// Commit moves Running → Committed.
func (t *Transaction) Commit() error {
	return t.transition(TxRunning, TxCommitted)
}

// Rollback moves Running → RolledBack.
func (t *Transaction) Rollback() error {
	return t.transition(TxRunning, TxRolledBack)
}

func (t *Transaction) transition(from, to TxState) error {
	if !t.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("%w: %s -> %s (current %s)", ErrInvalidTransition, from, to, t.State())
	}
	if to.Terminal() && t.observer != nil {
		t.observer(t.backend, to)
	}
	return nil
}

// Hooks are the backend-specific halves of finishing a transaction.
// Either may be nil when the backend has nothing to do.
type Hooks struct {
	Commit   func() error
	Rollback func() error
}

// Execute runs work inside tx. The transaction must already be Running. Work errors
// and panics roll back; a panic is re-raised after the rollback. A failing commit
// hook leaves the transaction RolledBack and returns the hook error.
func Execute(ctx context.Context, tx *Transaction, logger *slog.Logger, engine Engine, work UnitOfWork, hooks Hooks) (err error) {
	log := logger.With("tx", tx.ID, "backend", string(tx.backend))

	defer func() {
		if p := recover(); p != nil {
			if rbErr := runHook(hooks.Rollback); rbErr != nil {
				log.Error("failed to roll back transaction after panic", "error", rbErr, "panic", p)
			} else {
				log.Error("rolled back transaction after panic", "panic", p)
			}
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = work(ctx, engine); err != nil {
		if rbErr := runHook(hooks.Rollback); rbErr != nil {
			log.Error("failed to roll back transaction",
				"rollback_error", rbErr,
				"original_error", err)
			_ = tx.Rollback()
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		_ = tx.Rollback()
		log.Debug("rolled back transaction due to error", "error", err)
		return err
	}

	if err = runHook(hooks.Commit); err != nil {
		_ = tx.Rollback()
		log.Error("failed to commit transaction", "error", err)
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	log.Debug("transaction committed")
	return nil
}

func runHook(h func() error) error {
	if h == nil {
		return nil
	}
	return h()
}
