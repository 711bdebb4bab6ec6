/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
)

// DefaultTimeout bounds every Redis round trip.
const DefaultTimeout = 2 * time.Second

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	URL     string
	TTL     time.Duration
	Timeout time.Duration
}

// RedisStore keeps JSON person snapshots in Redis.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to opts.URL and pings it.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	redisOpts.DialTimeout = timeout
	redisOpts.ReadTimeout = timeout
	redisOpts.WriteTimeout = timeout

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.NewCacheUnavailableError("connect", opts.URL, err)
	}

	return NewRedisStoreFromClient(client, opts.TTL, timeout), nil
}

// NewRedisStoreFromClient wraps an existing client. A zero ttl keeps entries until evicted.
func NewRedisStoreFromClient(client *redis.Client, ttl, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RedisStore{client: client, ttl: ttl, timeout: timeout}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id int64) (*domain.Person, error) {
	key := Key(id)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewCacheUnavailableError("get", key, err)
	}

	var p domain.Person
	if err := json.Unmarshal(data, &p); err != nil {
		// corrupt entry
		s.client.Del(ctx, key)
		return nil, errs.NewCacheUnavailableError("decode", key, err)
	}
	return &p, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, p domain.Person) error {
	key := Key(p.ID)
	data, err := json.Marshal(p)
	if err != nil {
		return errs.NewCacheUnavailableError("encode", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return errs.NewCacheUnavailableError("set", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id int64) error {
	key := Key(id)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errs.NewCacheUnavailableError("delete", key, err)
	}
	return nil
}

// Client returns the underlying Redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
