// Package undo keeps a bounded history of whole task-list snapshots.
package undo

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/calvinalkan/doit/internal/task"
)

// ErrNoMoreUndo is returned by [Stack.Undo] on an empty stack.
var ErrNoMoreUndo = errors.New("nothing to undo")

// Restorer replaces the current task list with a snapshot.
type Restorer interface {
	SetAll(tasks []task.Task) error
}

type entry struct {
	description string
	snapshot    []task.Task
}

// Stack is a LIFO of snapshots. The zero value is an unbounded, empty
// stack. It is safe for concurrent use.
type Stack struct {
	mu       sync.Mutex
	entries  []entry
	maxDepth int
}

// New returns a stack holding at most maxDepth snapshots. A maxDepth of
// zero or less means unbounded.
func New(maxDepth int) *Stack {
	return &Stack{maxDepth: maxDepth}
}

// MaxDepth returns the configured bound, zero when unbounded.
func (s *Stack) MaxDepth() int {
	if s.maxDepth < 0 {
		return 0
	}

	return s.maxDepth
}

// Push records the state before a change described by description. The
// snapshot is copied. When the stack is full the oldest entry is dropped.
func (s *Stack) Push(description string, snapshot []task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry{
		description: description,
		snapshot:    slices.Clone(snapshot),
	})

	if s.maxDepth > 0 && len(s.entries) > s.maxDepth {
		drop := len(s.entries) - s.maxDepth
		clear(s.entries[:drop])
		s.entries = s.entries[drop:]
	}
}

// Undo restores the most recent snapshot through r and returns its
// description. The entry is consumed only if the restore succeeds, so a
// failed undo can be retried.
func (s *Stack) Undo(r Restorer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return "", ErrNoMoreUndo
	}

	top := s.entries[len(s.entries)-1]

	if err := r.SetAll(slices.Clone(top.snapshot)); err != nil {
		return "", fmt.Errorf("undo %q: %w", top.description, err)
	}

	s.entries[len(s.entries)-1] = entry{}
	s.entries = s.entries[:len(s.entries)-1]

	return top.description, nil
}

// Peek returns the description of the change the next Undo reverts.
func (s *Stack) Peek() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return "", false
	}

	return s.entries[len(s.entries)-1].description, true
}

// Descriptions lists every pending undo step, most recent first.
func (s *Stack) Descriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i].description)
	}

	return out
}

// Len returns the number of snapshots.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Clear drops every snapshot.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
}
