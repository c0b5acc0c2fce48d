package task

import (
	"fmt"
	"time"
)

// Type identifies which [Kind] variant a task carries.
type Type int

// Task types. The numeric order is the display order used by [CompareType].
const (
	TypeDeadline Type = iota + 1
	TypeTimed
	TypeFloating
)

func (t Type) String() string {
	switch t {
	case TypeDeadline:
		return "deadline"
	case TypeTimed:
		return "timed"
	case TypeFloating:
		return "floating"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Kind is the temporal shape of a task. It is a closed sum type: the only
// implementations are [Floating], [Deadline] and [Timed].
type Kind interface {
	Type() Type
	validate() error
	normalize() Kind
}

// Floating is a task with no date.
type Floating struct{}

// Deadline is a task due at a single instant.
type Deadline struct {
	Due time.Time
}

// Timed is a task occupying the closed interval [Start, End].
type Timed struct {
	Start time.Time
	End   time.Time
}

func (Floating) Type() Type { return TypeFloating }
func (Deadline) Type() Type { return TypeDeadline }
func (Timed) Type() Type    { return TypeTimed }

// Dates are stored with minute resolution and a four digit year.
const (
	Resolution = time.Minute
	MinYear    = 0
	MaxYear    = 9999
)

func (Floating) validate() error { return nil }

func (d Deadline) validate() error {
	if d.Due.IsZero() {
		return fmt.Errorf("%w: deadline is unset", ErrInvalidDate)
	}

	return checkYear(d.Due)
}

func (t Timed) validate() error {
	if t.Start.IsZero() || t.End.IsZero() {
		return fmt.Errorf("%w: start and end must both be set", ErrInvalidDate)
	}

	if t.Start.After(t.End) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidInterval,
			t.Start.Format(time.RFC3339), t.End.Format(time.RFC3339))
	}

	if err := checkYear(t.Start); err != nil {
		return err
	}

	return checkYear(t.End)
}

func checkYear(at time.Time) error {
	if y := at.Year(); y < MinYear || y > MaxYear {
		return fmt.Errorf("%w: year %d is outside %04d..%d", ErrInvalidDate, y, MinYear, MaxYear)
	}

	return nil
}

func (f Floating) normalize() Kind { return f }

func (d Deadline) normalize() Kind {
	return Deadline{Due: d.Due.Truncate(Resolution)}
}

func (t Timed) normalize() Kind {
	return Timed{Start: t.Start.Truncate(Resolution), End: t.End.Truncate(Resolution)}
}
