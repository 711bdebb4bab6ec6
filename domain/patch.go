/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package domain

import (
	"github.com/go-openapi/strfmt"

	errs "github.com/suparena/personstore/errors"
)

// Patch lists the fields an update changes. Nil pointers leave a field untouched.
// ClearDeathDate removes a recorded death date; ReplaceData writes Data even when it is nil.
type Patch struct {
	Name           *string
	BirthDate      *strfmt.Date
	DeathDate      *strfmt.Date
	ClearDeathDate bool
	Data           []byte
	ReplaceData    bool
}

// IsEmpty reports whether applying the patch would change nothing.
func (pt Patch) IsEmpty() bool {
	return pt.Name == nil && pt.BirthDate == nil && pt.DeathDate == nil &&
		!pt.ClearDeathDate && pt.Data == nil && !pt.ReplaceData
}

// Apply writes the patched fields into p and validates the result.
// p is left unchanged when the result is invalid.
func (pt Patch) Apply(p *Person) error {
	if pt.IsEmpty() {
		return errs.NewValidationError("", "patch changes no field")
	}
	if pt.DeathDate != nil && pt.ClearDeathDate {
		return errs.NewValidationError("death_date", "cannot both set and clear")
	}

	next := p.Clone()
	if pt.Name != nil {
		next.Name = *pt.Name
	}
	if pt.BirthDate != nil {
		next.BirthDate = *pt.BirthDate
	}
	if pt.DeathDate != nil {
		d := *pt.DeathDate
		next.DeathDate = &d
	}
	if pt.ClearDeathDate {
		next.DeathDate = nil
	}
	if pt.Data != nil || pt.ReplaceData {
		next.Data = append([]byte(nil), pt.Data...)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*p = next
	return nil
}
