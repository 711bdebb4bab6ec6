/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"context"
	"log/slog"

	"github.com/suparena/personstore/logging"
)

// LogPublisher writes events to a logger.
type LogPublisher struct {
	logger *slog.Logger
}

var _ Publisher = (*LogPublisher)(nil)

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logging.Component(logger, "event_log")}
}

// Publish implements Publisher.
func (l *LogPublisher) Publish(ctx context.Context, event *Event) error {
	l.logger.InfoContext(ctx, "person event",
		"event_id", event.ID,
		"event_type", event.Type,
		"person_id", event.PersonID,
		"revision", event.Revision)
	return nil
}
