/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import "sync"

// Counter issues monotonically increasing ids. One counter belongs to one store;
// it holds the next id to hand out.
type Counter struct {
	mu   sync.Mutex
	next int64
}

// NewCounter returns a counter whose first id is start.
func NewCounter(start int64) *Counter {
	return &Counter{next: start}
}

// Next returns the current value and advances the counter.
func (c *Counter) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (c *Counter) Peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}
