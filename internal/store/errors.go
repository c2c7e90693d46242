package store

import "errors"

var (
	// ErrNotFound is returned when a task lookup, delete, or append targets
	// an id that does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrConcurrentModification is returned when the database aborts an
	// operation because of a conflicting concurrent transaction. Callers may
	// retry; the history append itself never overwrites earlier entries.
	ErrConcurrentModification = errors.New("concurrent modification")
)
