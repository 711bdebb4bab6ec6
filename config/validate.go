/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	errs "github.com/suparena/personstore/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their configuration key
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("eventkinds", func(fl validator.FieldLevel) bool {
		for _, k := range strings.Split(fl.Field().String(), ",") {
			switch strings.ToLower(strings.TrimSpace(k)) {
			case EventsNone, EventsLog, EventsAMQP, EventsRedis:
			default:
				return false
			}
		}
		return true
	})
	return v
}

// Validate checks field constraints, then the settings each selected backend,
// cache and publisher needs. Failures are ValidationErrors naming the key.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errs.NewValidationError(fieldKey(fe.Namespace()), describe(fe))
		}
		return errs.NewValidationError("", err.Error())
	}

	switch {
	case c.Backend == "postgres" && c.Postgres.URL == "":
		return errs.NewValidationError("postgres.url", "is required for the postgres backend")
	case c.Backend == "dynamodb" && c.DynamoDB.Region == "":
		return errs.NewValidationError("dynamodb.region", "is required for the dynamodb backend")
	case c.DynamoDB.AccessKey != "" && c.DynamoDB.SecretKey == "":
		return errs.NewValidationError("dynamodb.secret_key", "is required with dynamodb.access_key")
	case c.Cache.Kind == CacheRedis && c.Cache.RedisURL == "":
		return errs.NewValidationError("cache.redis_url", "is required for the redis cache")
	case c.Cache.Kind == CacheLocal && (c.Cache.TTL <= 0 || c.Cache.Capacity <= 0 || c.Cache.Shards <= 0):
		return errs.NewValidationError("cache", "local cache needs positive ttl, capacity and shards")
	case c.Events.HasKind(EventsAMQP) && c.Events.AMQPURL == "":
		return errs.NewValidationError("events.amqp_url", "is required for the amqp publisher")
	case c.Events.HasKind(EventsRedis) && c.Events.RedisURL == "":
		return errs.NewValidationError("events.redis_url", "is required for the redis publisher")
	}
	return nil
}

// fieldKey turns "Config.postgres.url" into "postgres.url".
func fieldKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "url":
		return "must be a URL"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "eventkinds":
		return fmt.Sprintf("must list publishers from [%s %s %s %s]", EventsNone, EventsLog, EventsAMQP, EventsRedis)
	default:
		return fmt.Sprintf("failed the %s check", fe.Tag())
	}
}
