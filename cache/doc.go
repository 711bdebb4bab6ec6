/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package cache implements the cache-aside layer in front of the person backends.
//
// Stores:
//   - RedisStore: JSON snapshots under "person:<id>" with a TTL (go-redis)
//   - LocalStore: an in-process sharded cache (sturdyc)
//   - NopStore: caching disabled
//
// Aside wraps a Store with the read-through and overwrite/invalidate policy. Store
// failures never reach the caller: they are logged, counted and treated as misses.
// Writers must call Put or Invalidate only after the backend commit succeeded.
package cache
