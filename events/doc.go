/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package events carries person state transitions out of the process after a commit.
//
// Publishers deliver an Event to one channel (an AMQP topic exchange, a Redis pub/sub
// channel or the log); an Emitter fans out to several. A Notifier wraps a publisher so
// failures are logged and counted instead of returned, and a Dispatcher runs post-commit
// side effects on a single worker in submission order.
package events
