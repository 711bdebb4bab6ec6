/*
Package errors provides the semantic error taxonomy shared by every PersonStore backend.

Each failure class has a sentinel and a typed error whose Is method matches the
sentinel, so callers can test with errors.Is or with the helpers below regardless
of which backend produced the error.

	var (
	    ErrNotFound               = errors.New("entity not found")
	    ErrDuplicateIdentifier    = errors.New("duplicate identifier")
	    ErrInvalidInput           = errors.New("invalid input")
	    ErrConcurrentModification = errors.New("concurrent modification")
	    ErrBackendUnavailable     = errors.New("backend unavailable")
	    ErrCacheUnavailable       = errors.New("cache unavailable")
	    ErrPublishFailure         = errors.New("publish failure")
	)

Usage:

	p, err := people.Update(ctx, 3, seen.Revision, patch)
	if errors.IsConcurrentModification(err) {
	    // re-read and retry with the fresh revision
	}

Cache and publish errors are produced and consumed inside the library; they are
logged and dropped and never reach use-case callers.
*/
package errors
