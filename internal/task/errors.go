package task

import "errors"

// Validation errors. They are returned by constructors and transitions and
// never leave a [Task] half-modified.
var (
	ErrEmptyName       = errors.New("task name cannot be empty")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidInterval = errors.New("start is after end")
	ErrWrongKind       = errors.New("operation not valid for task kind")
	ErrUnknownOrder    = errors.New("unknown sort order")
)
