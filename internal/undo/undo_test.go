package undo_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/doit/internal/task"
	"github.com/calvinalkan/doit/internal/undo"
)

type fakeRestorer struct {
	got []task.Task
	err error
	n   int
}

func (f *fakeRestorer) SetAll(tasks []task.Task) error {
	f.n++
	if f.err != nil {
		return f.err
	}

	f.got = tasks

	return nil
}

func mustFloating(t *testing.T, name string) task.Task {
	t.Helper()

	tk, err := task.NewFloating(name)
	if err != nil {
		t.Fatalf("NewFloating: %v", err)
	}

	return tk
}

func Test_Undo_Returns_ErrNoMoreUndo_When_Empty(t *testing.T) {
	t.Parallel()

	var s undo.Stack

	_, err := s.Undo(&fakeRestorer{})
	if !errors.Is(err, undo.ErrNoMoreUndo) {
		t.Fatalf("err=%v, want ErrNoMoreUndo", err)
	}
}

func Test_Undo_Restores_Most_Recent_Snapshot(t *testing.T) {
	t.Parallel()

	s := undo.New(0)
	a := mustFloating(t, "a")
	b := mustFloating(t, "b")

	s.Push("add b", []task.Task{a})
	s.Push("delete a", []task.Task{a, b})

	r := &fakeRestorer{}

	desc, err := s.Undo(r)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}

	if desc != "delete a" {
		t.Fatalf("description=%q, want %q", desc, "delete a")
	}

	if diff := cmp.Diff([]string{"a", "b"}, []string{r.got[0].Name(), r.got[1].Name()}); diff != "" {
		t.Fatalf("restored snapshot (-want +got):\n%s", diff)
	}

	if s.Len() != 1 {
		t.Fatalf("Len()=%d, want 1", s.Len())
	}
}

func Test_Undo_Keeps_Entry_When_Restore_Fails(t *testing.T) {
	t.Parallel()

	s := undo.New(0)
	s.Push("rename", []task.Task{mustFloating(t, "a")})

	writeErr := errors.New("disk full")
	r := &fakeRestorer{err: writeErr}

	if _, err := s.Undo(r); !errors.Is(err, writeErr) {
		t.Fatalf("err=%v, want %v", err, writeErr)
	}

	if s.Len() != 1 {
		t.Fatalf("Len()=%d after failed undo, want 1", s.Len())
	}

	r.err = nil

	desc, err := s.Undo(r)
	if err != nil || desc != "rename" {
		t.Fatalf("retry Undo()=(%q, %v), want (rename, nil)", desc, err)
	}

	if r.n != 2 {
		t.Fatalf("SetAll calls=%d, want 2", r.n)
	}
}

func Test_Push_Copies_Snapshot(t *testing.T) {
	t.Parallel()

	s := undo.New(0)
	snap := []task.Task{mustFloating(t, "before")}
	s.Push("x", snap)

	if err := snap[0].Rename("after"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	r := &fakeRestorer{}
	if _, err := s.Undo(r); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	if got := r.got[0].Name(); got != "before" {
		t.Fatalf("restored name=%q, want %q", got, "before")
	}
}

func Test_Push_Drops_Oldest_Past_MaxDepth(t *testing.T) {
	t.Parallel()

	s := undo.New(2)
	s.Push("one", nil)
	s.Push("two", nil)
	s.Push("three", nil)

	if diff := cmp.Diff([]string{"three", "two"}, s.Descriptions()); diff != "" {
		t.Fatalf("Descriptions (-want +got):\n%s", diff)
	}

	if s.MaxDepth() != 2 {
		t.Fatalf("MaxDepth()=%d, want 2", s.MaxDepth())
	}
}

func Test_Peek_And_Clear(t *testing.T) {
	t.Parallel()

	s := undo.New(0)

	if _, ok := s.Peek(); ok {
		t.Fatal("Peek on empty stack reported an entry")
	}

	s.Push("first", nil)

	desc, ok := s.Peek()
	if !ok || desc != "first" {
		t.Fatalf("Peek()=(%q, %v), want (first, true)", desc, ok)
	}

	s.Clear()

	if s.Len() != 0 {
		t.Fatalf("Len()=%d after Clear, want 0", s.Len())
	}
}
