// Package task defines the task record: a named item that is floating,
// due at a deadline, or spans a time interval.
//
// A [Task] is a plain value. Copying it yields an independent task with the
// same identity, so callers that hand tasks across an API boundary cannot
// alias each other's state. Fields are unexported; every change goes through
// a validated transition that either succeeds completely or leaves the task
// untouched.
package task

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var lastID atomic.Int64

// nextID returns a process-unique identity. IDs start at 1, so the zero Task
// never collides with a constructed one.
func nextID() int64 {
	return lastID.Add(1)
}

// Task is a single to-do record.
type Task struct {
	id   int64
	name string
	done bool
	kind Kind
}

// New validates name and kind and returns a task with a fresh identity.
// Dates are truncated to [Resolution].
func New(name string, kind Kind, done bool) (Task, error) {
	if err := validateName(name); err != nil {
		return Task{}, err
	}

	if kind == nil {
		kind = Floating{}
	}

	kind = kind.normalize()

	if err := kind.validate(); err != nil {
		return Task{}, err
	}

	return Task{id: nextID(), name: name, done: done, kind: kind}, nil
}

// NewFloating returns an undone task without a date.
func NewFloating(name string) (Task, error) {
	return New(name, Floating{}, false)
}

// NewDeadline returns an undone task due at due.
func NewDeadline(name string, due time.Time) (Task, error) {
	return New(name, Deadline{Due: due}, false)
}

// NewTimed returns an undone task spanning [start, end].
func NewTimed(name string, start, end time.Time) (Task, error) {
	return New(name, Timed{Start: start, End: end}, false)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	if strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("%w: name must be a single line", ErrEmptyName)
	}

	return nil
}

// ID returns the task's identity. Two tasks with the same ID are the same
// task, possibly in different states.
func (t Task) ID() int64 { return t.id }

// Name returns the task description.
func (t Task) Name() string { return t.name }

// Done reports whether the task is completed.
func (t Task) Done() bool { return t.done }

// Kind returns the task's temporal shape.
func (t Task) Kind() Kind {
	if t.kind == nil {
		return Floating{}
	}

	return t.kind
}

// Type returns the kind's discriminator.
func (t Task) Type() Type { return t.Kind().Type() }

// Due returns the deadline of a deadline task.
func (t Task) Due() (time.Time, bool) {
	d, ok := t.kind.(Deadline)

	return d.Due, ok
}

// Interval returns the bounds of a timed task.
func (t Task) Interval() (time.Time, time.Time, bool) {
	tm, ok := t.kind.(Timed)

	return tm.Start, tm.End, ok
}

// Clone returns an independent copy with the same identity.
func (t Task) Clone() Task {
	return t
}

// SameTask reports whether t and other share an identity.
func (t Task) SameTask(other Task) bool {
	return t.id == other.id
}

// Instant returns the instant used for chronological ordering: the due date
// of a deadline task or the start of a timed task. Floating tasks have none.
func (t Task) Instant() (time.Time, bool) {
	switch k := t.kind.(type) {
	case Deadline:
		return k.Due, true
	case Timed:
		return k.Start, true
	default:
		return time.Time{}, false
	}
}

// Rename replaces the task name.
func (t *Task) Rename(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	t.name = name

	return nil
}

// SetDone sets the completion flag.
func (t *Task) SetDone(done bool) {
	t.done = done
}

// ChangeToFloating drops any date from the task.
func (t *Task) ChangeToFloating() {
	t.kind = Floating{}
}

// ChangeToDeadline turns the task into a deadline task due at due.
func (t *Task) ChangeToDeadline(due time.Time) error {
	return t.setKind(Deadline{Due: due})
}

// ChangeToTimed turns the task into a timed task spanning [start, end].
func (t *Task) ChangeToTimed(start, end time.Time) error {
	return t.setKind(Timed{Start: start, End: end})
}

// ChangeDeadline moves the due date of a deadline task.
func (t *Task) ChangeDeadline(due time.Time) error {
	if _, ok := t.kind.(Deadline); !ok {
		return fmt.Errorf("%w: change deadline on %s task", ErrWrongKind, t.Type())
	}

	return t.setKind(Deadline{Due: due})
}

// ChangeInterval moves the bounds of a timed task.
func (t *Task) ChangeInterval(start, end time.Time) error {
	if _, ok := t.kind.(Timed); !ok {
		return fmt.Errorf("%w: change interval on %s task", ErrWrongKind, t.Type())
	}

	return t.setKind(Timed{Start: start, End: end})
}

// ChangeStart moves only the start of a timed task.
func (t *Task) ChangeStart(start time.Time) error {
	tm, ok := t.kind.(Timed)
	if !ok {
		return fmt.Errorf("%w: change start on %s task", ErrWrongKind, t.Type())
	}

	return t.setKind(Timed{Start: start, End: tm.End})
}

// ChangeEnd moves only the end of a timed task.
func (t *Task) ChangeEnd(end time.Time) error {
	tm, ok := t.kind.(Timed)
	if !ok {
		return fmt.Errorf("%w: change end on %s task", ErrWrongKind, t.Type())
	}

	return t.setKind(Timed{Start: tm.Start, End: end})
}

// Postpone shifts every date of the task by d. Floating tasks are unchanged.
func (t *Task) Postpone(d time.Duration) error {
	switch k := t.kind.(type) {
	case Deadline:
		return t.setKind(Deadline{Due: k.Due.Add(d)})
	case Timed:
		return t.setKind(Timed{Start: k.Start.Add(d), End: k.End.Add(d)})
	}

	return nil
}

func (t *Task) setKind(k Kind) error {
	k = k.normalize()

	if err := k.validate(); err != nil {
		return err
	}

	t.kind = k

	return nil
}

// String renders a one-line summary, mostly for logs and test failures.
func (t Task) String() string {
	mark := "-"
	if t.done {
		mark = "*"
	}

	switch k := t.kind.(type) {
	case Deadline:
		return fmt.Sprintf("#%d [%s] %s (due %s)", t.id, mark, t.name, k.Due.Format(time.RFC3339))
	case Timed:
		return fmt.Sprintf("#%d [%s] %s (%s .. %s)", t.id, mark, t.name,
			k.Start.Format(time.RFC3339), k.End.Format(time.RFC3339))
	default:
		return fmt.Sprintf("#%d [%s] %s", t.id, mark, t.name)
	}
}
