package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// ReferenceError rejects a delete while other records still reference the
// target (delete policy is reject, not cascade).
type ReferenceError struct {
	Record string // deleted record type
	ID     string
	RefBy  string // referencing record type
	Count  int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %s is referenced by %d %s record(s)", e.Record, e.ID, e.Count, e.RefBy)
}

// MigrationError reports a failed schema migration. The store is rolled
// back to its pre-migration state before this is returned.
type MigrationError struct {
	From int
	To   int
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration v%d -> v%d failed: %v", e.From, e.To, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// SnapshotError reports an import blob that failed shape validation.
// Nothing is replaced when it is returned.
type SnapshotError struct {
	Reason string
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s", e.Reason)
}
