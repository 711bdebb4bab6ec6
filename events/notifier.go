/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"context"
	"log/slog"

	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/logging"
	"github.com/suparena/personstore/metrics"
)

// Notifier publishes events without ever failing the caller.
type Notifier struct {
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewNotifier wraps publisher. A nil publisher drops every event.
func NewNotifier(publisher Publisher, logger *slog.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{
		publisher: publisher,
		logger:    logging.Component(logger, "notifier"),
		metrics:   m,
	}
}

// Notify publishes event. A failure is wrapped as PublishFailure, logged, counted and
// returned for inspection; callers are free to ignore it.
func (n *Notifier) Notify(ctx context.Context, event *Event) error {
	if n.publisher == nil {
		return nil
	}
	err := n.publisher.Publish(ctx, event)
	n.metrics.RecordPublish(err)
	if err != nil {
		err = errs.NewPublishFailureError(string(event.Type), err)
		n.logger.Warn("event publish failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"person_id", event.PersonID,
			"error", err)
		return err
	}
	n.logger.Debug("event published", "event_id", event.ID, "event_type", event.Type)
	return nil
}
