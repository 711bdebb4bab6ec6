/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package domain

import (
	"encoding/json"
	"testing"

	"github.com/go-openapi/strfmt"

	errs "github.com/suparena/personstore/errors"
)

func abel(t *testing.T) Person {
	t.Helper()
	death := MustDate("1829-04-06")
	p, err := New("Abel", MustDate("1802-08-05"), &death, []byte("Abel's theorem"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestNewValidation(t *testing.T) {
	before := MustDate("1800-01-01")
	tests := []struct {
		name  string
		pname string
		birth strfmt.Date
		death *strfmt.Date
		field string
	}{
		{name: "empty name", pname: "   ", birth: MustDate("1802-08-05"), field: "name"},
		{name: "missing birth date", pname: "Abel", field: "birth_date"},
		{name: "death before birth", pname: "Abel", birth: MustDate("1802-08-05"), death: &before, field: "death_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pname, tt.birth, tt.death, nil)
			if !errs.IsValidationError(err) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			if ve := err.(*errs.ValidationError); ve.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}

	t.Run("death on birth day is valid", func(t *testing.T) {
		same := MustDate("1802-08-05")
		if _, err := New("Abel", MustDate("1802-08-05"), &same, nil); err != nil {
			t.Fatalf("Expected valid person, got %v", err)
		}
	})
}

func TestSameVersionAndEqual(t *testing.T) {
	a := abel(t)
	a.ID = 3

	b := a.Clone()
	if !a.Equal(b) || !a.SameVersion(b) {
		t.Fatal("Clone should be equal and the same version")
	}

	b.Name = "Niels Henrik Abel"
	if a.Equal(b) {
		t.Error("Different names should not be equal")
	}
	if !a.SameVersion(b) {
		t.Error("Same id and revision should be the same version")
	}

	b.Revision++
	if a.SameVersion(b) {
		t.Error("Different revisions should not be the same version")
	}
}

func TestCloneIsolation(t *testing.T) {
	a := abel(t)
	c := a.Clone()
	c.Data[0] = 'X'
	*c.DeathDate = MustDate("1900-01-01")

	if string(a.Data) != "Abel's theorem" {
		t.Errorf("Clone shares Data: %q", a.Data)
	}
	if a.DeathDate.String() != "1829-04-06" {
		t.Errorf("Clone shares DeathDate: %s", a.DeathDate)
	}
}

func TestDied(t *testing.T) {
	p, err := New("Galois", MustDate("1811-10-25"), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := p.Died(MustDate("1800-01-01")); !errs.IsValidationError(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if p.DeathDate != nil {
		t.Fatal("Rejected death date must not be kept")
	}

	if err := p.Died(MustDate("1832-05-31")); err != nil {
		t.Fatalf("Died failed: %v", err)
	}
	if p.DeathDate.String() != "1832-05-31" {
		t.Errorf("Unexpected death date %s", p.DeathDate)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a := abel(t)
	a.ID = 3
	a.Revision = 2

	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("Unmarshal to map failed: %v", err)
	}
	if fields["birth_date"] != "1802-08-05" || fields["death_date"] != "1829-04-06" {
		t.Errorf("Dates should be encoded as calendar days: %s", raw)
	}

	var back Person
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !a.Equal(back) {
		t.Errorf("Round trip mismatch:\n  got  %v\n  want %v", back, a)
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("1802/08/05"); !errs.IsValidationError(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
	d, err := ParseDate("1802-08-05")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if d.String() != "1802-08-05" {
		t.Errorf("Unexpected date %s", d)
	}
}
