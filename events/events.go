/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/suparena/personstore/domain"
)

// Type names a person state transition. It doubles as the AMQP routing key.
type Type string

const (
	PersonCreated Type = "person.created"
	PersonUpdated Type = "person.updated"
	PersonDeleted Type = "person.deleted"
)

// Event describes a committed state transition.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       Type           `json:"type"`
	PersonID   int64          `json:"person_id"`
	Revision   int64          `json:"revision"`
	Person     *domain.Person `json:"person,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// New creates an event carrying a snapshot of p.
func New(t Type, p domain.Person) *Event {
	snapshot := p.Clone()
	return &Event{
		ID:         uuid.New(),
		Type:       t,
		PersonID:   p.ID,
		Revision:   p.Revision,
		Person:     &snapshot,
		OccurredAt: time.Now().UTC(),
	}
}

// NewDeleted creates a person.deleted event. revision is the last stored revision.
func NewDeleted(id, revision int64) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       PersonDeleted,
		PersonID:   id,
		Revision:   revision,
		OccurredAt: time.Now().UTC(),
	}
}

// Marshal encodes the event as JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to one destination.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event *Event) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, event *Event) error {
	return f(ctx, event)
}
