// Package domain holds the Person entity, its validation rules and the patch type
// used by updates.
package domain
