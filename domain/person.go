/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"

	errs "github.com/suparena/personstore/errors"
)

// EntityType names the person entity in keys, errors and events.
const EntityType = "person"

// Person is the single domain entity. Revision is the optimistic-concurrency token:
// 0 at creation, +1 on every successful update.
type Person struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	BirthDate strfmt.Date  `json:"birth_date"`
	DeathDate *strfmt.Date `json:"death_date,omitempty"`
	Data      []byte       `json:"data,omitempty"`
	Revision  int64        `json:"revision"`
}

// New builds an unsaved person and validates it.
func New(name string, birth strfmt.Date, death *strfmt.Date, data []byte) (Person, error) {
	p := Person{
		Name:      name,
		BirthDate: birth,
		DeathDate: death,
		Data:      data,
	}
	if err := p.Validate(); err != nil {
		return Person{}, err
	}
	return p, nil
}

// Validate checks the field constraints of a person.
func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errs.NewValidationError("name", "must not be empty")
	}
	if time.Time(p.BirthDate).IsZero() {
		return errs.NewValidationError("birth_date", "is required")
	}
	if p.DeathDate != nil && time.Time(*p.DeathDate).Before(time.Time(p.BirthDate)) {
		return errs.NewValidationError("death_date",
			fmt.Sprintf("%s is before birth date %s", p.DeathDate, p.BirthDate))
	}
	return nil
}

// SameVersion reports whether both snapshots are the same logical version.
func (p Person) SameVersion(other Person) bool {
	return p.ID == other.ID && p.Revision == other.Revision
}

// Equal compares every field. Dates compare by calendar day.
func (p Person) Equal(other Person) bool {
	if !p.SameVersion(other) || p.Name != other.Name {
		return false
	}
	if p.BirthDate.String() != other.BirthDate.String() {
		return false
	}
	if (p.DeathDate == nil) != (other.DeathDate == nil) {
		return false
	}
	if p.DeathDate != nil && p.DeathDate.String() != other.DeathDate.String() {
		return false
	}
	return bytes.Equal(p.Data, other.Data)
}

// Clone returns a copy that shares no memory with p.
func (p Person) Clone() Person {
	c := p
	if p.DeathDate != nil {
		d := *p.DeathDate
		c.DeathDate = &d
	}
	if p.Data != nil {
		c.Data = append([]byte(nil), p.Data...)
	}
	return c
}

// Died records the death date.
func (p *Person) Died(date strfmt.Date) error {
	prev := p.DeathDate
	p.DeathDate = &date
	if err := p.Validate(); err != nil {
		p.DeathDate = prev
		return err
	}
	return nil
}

func (p Person) String() string {
	death := "-"
	if p.DeathDate != nil {
		death = p.DeathDate.String()
	}
	return fmt.Sprintf("Person{id=%d name=%q birth=%s death=%s data=%d bytes rev=%d}",
		p.ID, p.Name, p.BirthDate, death, len(p.Data), p.Revision)
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (strfmt.Date, error) {
	t, err := time.Parse(strfmt.RFC3339FullDate, s)
	if err != nil {
		return strfmt.Date{}, errs.NewValidationError("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return strfmt.Date(t), nil
}

// MustDate is ParseDate for literals; it panics on malformed input.
func MustDate(s string) strfmt.Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
