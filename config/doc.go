/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads PersonStore settings from defaults, an optional YAML file and
// PERSONSTORE_ environment variables (in increasing precedence), then validates them.
//
// Environment variables map to keys by upper-casing and replacing dots with
// underscores, e.g. PERSONSTORE_POSTGRES_URL sets postgres.url.
package config
