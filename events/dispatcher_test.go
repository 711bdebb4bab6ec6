/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher(t *testing.T) {
	t.Run("runs effects in submission order", func(t *testing.T) {
		d := NewDispatcher(4, nil)
		defer d.Close()

		var mu sync.Mutex
		var order []int
		for i := 0; i < 20; i++ {
			i := i
			require.NoError(t, d.Submit(func(context.Context) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			}))
		}
		require.NoError(t, d.Flush(context.Background()))

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, order, 20)
		for i, v := range order {
			assert.Equal(t, i, v)
		}
	})

	t.Run("effects get a deadline", func(t *testing.T) {
		d := NewDispatcher(1, nil)
		defer d.Close()

		var hasDeadline bool
		require.NoError(t, d.Submit(func(ctx context.Context) {
			_, hasDeadline = ctx.Deadline()
		}))
		require.NoError(t, d.Flush(context.Background()))
		assert.True(t, hasDeadline)
	})

	t.Run("panicking effect does not stop the worker", func(t *testing.T) {
		d := NewDispatcher(2, nil)
		defer d.Close()

		ran := false
		require.NoError(t, d.Submit(func(context.Context) { panic("boom") }))
		require.NoError(t, d.Submit(func(context.Context) { ran = true }))
		require.NoError(t, d.Flush(context.Background()))
		assert.True(t, ran)
	})

	t.Run("close drains the queue", func(t *testing.T) {
		d := NewDispatcher(8, nil)
		release := make(chan struct{})
		var count int
		require.NoError(t, d.Submit(func(context.Context) { <-release }))
		for i := 0; i < 5; i++ {
			require.NoError(t, d.Submit(func(context.Context) { count++ }))
		}
		close(release)

		require.NoError(t, d.Close())
		assert.Equal(t, 5, count)
		assert.ErrorIs(t, d.Submit(func(context.Context) {}), ErrDispatcherClosed)
		assert.ErrorIs(t, d.Flush(context.Background()), ErrDispatcherClosed)
		assert.NoError(t, d.Close(), "close is idempotent")
	})

	t.Run("flush honours the context", func(t *testing.T) {
		d := NewDispatcher(2, nil)
		release := make(chan struct{})
		require.NoError(t, d.Submit(func(context.Context) { <-release }))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, d.Flush(ctx), context.DeadlineExceeded)

		close(release)
		require.NoError(t, d.Close())
	})
}
