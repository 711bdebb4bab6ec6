/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/personstore/domain"
)

func abel() domain.Person {
	death := domain.MustDate("1829-04-06")
	return domain.Person{
		ID:        3,
		Name:      "Abel",
		BirthDate: domain.MustDate("1802-08-05"),
		DeathDate: &death,
		Data:      []byte("Abel's theorem"),
		Revision:  1,
	}
}

func TestNew(t *testing.T) {
	p := abel()
	event := New(PersonUpdated, p)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, PersonUpdated, event.Type)
	assert.Equal(t, int64(3), event.PersonID)
	assert.Equal(t, int64(1), event.Revision)
	assert.False(t, event.OccurredAt.IsZero())

	// the event holds a snapshot
	p.Data[0] = 'X'
	assert.Equal(t, byte('A'), event.Person.Data[0])
}

func TestNewDeleted(t *testing.T) {
	event := NewDeleted(3, 4)
	assert.Equal(t, PersonDeleted, event.Type)
	assert.Nil(t, event.Person)
	assert.Equal(t, int64(4), event.Revision)
}

func TestMarshal(t *testing.T) {
	event := New(PersonCreated, abel())
	payload, err := event.Marshal()
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &wire))
	assert.Equal(t, "person.created", wire["type"])
	assert.Equal(t, float64(3), wire["person_id"])
	person := wire["person"].(map[string]interface{})
	assert.Equal(t, "1802-08-05", person["birth_date"])
	assert.Equal(t, "1829-04-06", person["death_date"])

	var decoded Event
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.True(t, decoded.Person.Equal(*event.Person))
}
