/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package usecase composes the storage runner, the cache-aside layer and the event
// notifier into the person operations applications call.
//
// Every mutation runs as one unit of work on the configured backend. Cache writes,
// invalidations and event publishes happen only after that unit of work committed,
// either inline or on an events.Dispatcher. Their failures are logged and never
// reach the caller.
package usecase
