package filestore

import (
	"errors"
	"fmt"
)

// Write refusals and failures. Refusals are returned before the file is
// touched.
var (
	ErrLocked             = errors.New("database file is locked by another process")
	ErrReadOnly           = errors.New("database file is read-only")
	ErrPermissionsUnknown = errors.New("database file cannot be opened")
	ErrCorrupt            = errors.New("database file is corrupt")
	ErrDurableWrite       = errors.New("durable write failed")
	ErrClosed             = errors.New("store is closed")
)

// CorruptError describes why a database file was rejected. It matches
// [ErrCorrupt] with errors.Is.
type CorruptError struct {
	// Line is the 1-based line number of the offending record, or 0 when the
	// file could not be read at all.
	Line   int
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", ErrCorrupt, e.Line, msg)
	}

	return fmt.Sprintf("%s: %s", ErrCorrupt, msg)
}

func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}
