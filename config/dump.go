/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"net/url"

	"gopkg.in/yaml.v3"
)

const redacted = "********"

// Dump renders cfg as YAML with credentials redacted.
func Dump(cfg *Config) ([]byte, error) {
	c := *cfg
	c.Postgres.URL = redactURL(c.Postgres.URL)
	c.Cache.RedisURL = redactURL(c.Cache.RedisURL)
	c.Events.AMQPURL = redactURL(c.Events.AMQPURL)
	c.Events.RedisURL = redactURL(c.Events.RedisURL)
	if c.DynamoDB.SecretKey != "" {
		c.DynamoDB.SecretKey = redacted
	}
	return yaml.Marshal(&c)
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return u.Redacted()
}
