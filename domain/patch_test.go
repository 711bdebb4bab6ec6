/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package domain

import (
	"testing"

	errs "github.com/suparena/personstore/errors"
)

func TestPatchApply(t *testing.T) {
	t.Run("changes only patched fields", func(t *testing.T) {
		p := abel(t)
		name := "Niels Henrik Abel"

		if err := (Patch{Name: &name}).Apply(&p); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if p.Name != name {
			t.Errorf("Name not patched: %q", p.Name)
		}
		if p.BirthDate.String() != "1802-08-05" || p.DeathDate.String() != "1829-04-06" {
			t.Errorf("Dates should be untouched: %v", p)
		}
		if string(p.Data) != "Abel's theorem" {
			t.Errorf("Data should be untouched: %q", p.Data)
		}
	})

	t.Run("clear death date and data", func(t *testing.T) {
		p := abel(t)
		if err := (Patch{ClearDeathDate: true, ReplaceData: true}).Apply(&p); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if p.DeathDate != nil || p.Data != nil {
			t.Errorf("Expected cleared fields, got %v", p)
		}
	})

	t.Run("invalid result leaves person unchanged", func(t *testing.T) {
		p := abel(t)
		early := MustDate("1700-01-01")
		err := (Patch{DeathDate: &early}).Apply(&p)
		if !errs.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		if p.DeathDate.String() != "1829-04-06" {
			t.Errorf("Person modified by failed patch: %v", p)
		}
	})

	t.Run("empty patch is rejected", func(t *testing.T) {
		p := abel(t)
		if err := (Patch{}).Apply(&p); !errs.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("set and clear conflict", func(t *testing.T) {
		p := abel(t)
		d := MustDate("1830-01-01")
		if err := (Patch{DeathDate: &d, ClearDeathDate: true}).Apply(&p); !errs.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})
}
