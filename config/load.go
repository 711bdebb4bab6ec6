/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PERSONSTORE"

var defaults = map[string]interface{}{
	"backend":                    "memory",
	"log_level":                  "info",
	"memory.counter_start":       1,
	"postgres.url":               "",
	"postgres.driver":            "pgx",
	"postgres.max_open_conns":    10,
	"postgres.max_idle_conns":    5,
	"postgres.conn_max_lifetime": 30 * time.Minute,
	"postgres.migrate":           false,
	"dynamodb.region":            "",
	"dynamodb.table":             "person",
	"dynamodb.endpoint":          "",
	"dynamodb.access_key":        "",
	"dynamodb.secret_key":        "",
	"cache.kind":                 CacheNone,
	"cache.redis_url":            "",
	"cache.ttl":                  5 * time.Minute,
	"cache.capacity":             10000,
	"cache.shards":               64,
	"events.kind":                EventsNone,
	"events.amqp_url":            "",
	"events.exchange":            "personstore",
	"events.redis_url":           "",
	"events.channel":             "personstore.events",
	"events.queue_size":          256,
}

// secrets and endpoints are bound explicitly so they resolve from the environment
// even when no file mentions them.
var boundEnv = []string{
	"postgres.url",
	"dynamodb.endpoint",
	"dynamodb.access_key",
	"dynamodb.secret_key",
	"cache.redis_url",
	"events.amqp_url",
	"events.redis_url",
}

// Default returns the configuration used when nothing overrides the defaults.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from path (optional) and the environment and validates it.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundEnv {
		_ = v.BindEnv(key)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}
