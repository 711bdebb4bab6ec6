/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"strings"
	"time"

	"github.com/suparena/personstore/datastore"
)

// Cache kinds.
const (
	CacheNone  = "none"
	CacheRedis = "redis"
	CacheLocal = "local"
)

// Event publisher kinds.
const (
	EventsNone  = "none"
	EventsLog   = "log"
	EventsAMQP  = "amqp"
	EventsRedis = "redis"
)

// Config holds all PersonStore settings.
type Config struct {
	Backend  string         `mapstructure:"backend" yaml:"backend" validate:"required,oneof=memory postgres dynamodb"`
	LogLevel string         `mapstructure:"log_level" yaml:"log_level" validate:"required,oneof=debug info warn error"`
	Memory   MemoryConfig   `mapstructure:"memory" yaml:"memory"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb" yaml:"dynamodb"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Events   EventsConfig   `mapstructure:"events" yaml:"events"`
}

// MemoryConfig configures the in-memory backend.
type MemoryConfig struct {
	// CounterStart is the first id the in-memory counter hands out.
	CounterStart int64 `mapstructure:"counter_start" yaml:"counter_start" validate:"gte=0"`
}

// PostgresConfig configures the relational backend.
type PostgresConfig struct {
	URL             string        `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	Driver          string        `mapstructure:"driver" yaml:"driver" validate:"oneof=postgres pgx"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime" validate:"gte=0"`
	// Migrate applies the embedded schema migrations when the store opens.
	Migrate bool `mapstructure:"migrate" yaml:"migrate"`
}

// DynamoDBConfig configures the document-store backend.
type DynamoDBConfig struct {
	Region   string `mapstructure:"region" yaml:"region"`
	Table    string `mapstructure:"table" yaml:"table" validate:"required"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	// Static credentials; the default AWS chain is used when AccessKey is empty.
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// CacheConfig configures the cache-aside layer.
type CacheConfig struct {
	Kind     string        `mapstructure:"kind" yaml:"kind" validate:"oneof=none redis local"`
	RedisURL string        `mapstructure:"redis_url" yaml:"redis_url" validate:"omitempty,url"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gte=0"`
	Capacity int           `mapstructure:"capacity" yaml:"capacity" validate:"gte=0"`
	Shards   int           `mapstructure:"shards" yaml:"shards" validate:"gte=0"`
}

// EventsConfig configures event publishing. Kind is a comma-separated list of
// publishers; every listed publisher receives every event.
type EventsConfig struct {
	Kind      string `mapstructure:"kind" yaml:"kind" validate:"eventkinds"`
	AMQPURL   string `mapstructure:"amqp_url" yaml:"amqp_url" validate:"omitempty,url"`
	Exchange  string `mapstructure:"exchange" yaml:"exchange"`
	RedisURL  string `mapstructure:"redis_url" yaml:"redis_url" validate:"omitempty,url"`
	Channel   string `mapstructure:"channel" yaml:"channel"`
	QueueSize int    `mapstructure:"queue_size" yaml:"queue_size" validate:"gte=0"`
}

// BackendName returns the configured backend.
func (c *Config) BackendName() datastore.Backend {
	return datastore.Backend(c.Backend)
}

// Kinds returns the publishers listed in Kind, without duplicates or "none".
func (e EventsConfig) Kinds() []string {
	var kinds []string
	seen := make(map[string]bool)
	for _, k := range strings.Split(e.Kind, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || k == EventsNone || seen[k] {
			continue
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds
}

// HasKind reports whether kind is one of the configured publishers.
func (e EventsConfig) HasKind(kind string) bool {
	for _, k := range e.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}
