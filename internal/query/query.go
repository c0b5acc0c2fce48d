// Package query evaluates conjunctive task filters.
//
// Every restriction set on a [Filter] must hold for a task to match; unset
// restrictions always hold. Type restrictions are also combined with AND, so
// asking for two task types at once matches nothing.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calvinalkan/doit/internal/task"
)

// ErrInvalidRange is returned for a date range with an unset bound or a
// start after its end.
var ErrInvalidRange = errors.New("invalid date range")

// Range is an inclusive date range.
type Range struct {
	Start time.Time
	End   time.Time
}

// Validate checks both bounds are set and ordered.
func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: both bounds are required", ErrInvalidRange)
	}

	if r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange,
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}

	return nil
}

// Filter selects tasks. The zero Filter matches every task.
type Filter struct {
	CompletedOnly  bool
	IncompleteOnly bool

	FloatingOnly bool
	DeadlineOnly bool
	TimedOnly    bool

	// Keywords must all appear in the task name, ignoring case. Empty
	// keywords are ignored.
	Keywords []string

	// Range, when set, keeps only tasks that clash with it.
	Range *Range
}

// Validate reports whether the filter can be evaluated.
func (f Filter) Validate() error {
	if f.Range != nil {
		return f.Range.Validate()
	}

	return nil
}

// IsEmpty reports whether the filter has no active restriction.
func (f Filter) IsEmpty() bool {
	if f.CompletedOnly || f.IncompleteOnly || f.FloatingOnly || f.DeadlineOnly || f.TimedOnly || f.Range != nil {
		return false
	}

	for _, kw := range f.Keywords {
		if kw != "" {
			return false
		}
	}

	return true
}

// Match reports whether t satisfies every restriction in f. The filter must
// be valid.
func Match(t task.Task, f Filter) bool {
	if f.CompletedOnly && !t.Done() {
		return false
	}

	if f.IncompleteOnly && t.Done() {
		return false
	}

	typ := t.Type()

	if f.FloatingOnly && typ != task.TypeFloating {
		return false
	}

	if f.DeadlineOnly && typ != task.TypeDeadline {
		return false
	}

	if f.TimedOnly && typ != task.TypeTimed {
		return false
	}

	for _, kw := range f.Keywords {
		if kw != "" && !t.ContainsTerm(kw) {
			return false
		}
	}

	if f.Range != nil && !t.ClashesWithRange(f.Range.Start, f.Range.End) {
		return false
	}

	return true
}

// Apply returns the tasks matching f, in input order.
func Apply(tasks []task.Task, f Filter) ([]task.Task, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	out := make([]task.Task, 0, len(tasks))

	for _, t := range tasks {
		if Match(t, f) {
			out = append(out, t)
		}
	}

	return out, nil
}

// SplitKeywords splits a free-text search into keywords on whitespace.
func SplitKeywords(s string) []string {
	return strings.Fields(s)
}
