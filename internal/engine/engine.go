// Package engine ties the repository and the undo history together.
//
// An [Engine] is constructed explicitly and owns both. Every mutation takes
// a snapshot of the task list first and pushes it onto the undo stack only
// once the repository accepted the change, so a refused or failed write
// never leaves a bogus undo step behind.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/calvinalkan/doit/internal/filestore"
	"github.com/calvinalkan/doit/internal/query"
	"github.com/calvinalkan/doit/internal/repo"
	"github.com/calvinalkan/doit/internal/task"
	"github.com/calvinalkan/doit/internal/undo"
)

// DefaultUndoDepth bounds the undo history when no depth is configured.
const DefaultUndoDepth = 100

// Options configures [Open].
type Options struct {
	// Store configures the underlying file store. Its Logger defaults to
	// Logger.
	Store filestore.Options
	// UndoDepth bounds the undo history. Zero selects [DefaultUndoDepth];
	// a negative value means unbounded.
	UndoDepth int
	// Logger receives diagnostics. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Engine is the task persistence engine.
type Engine struct {
	mu   sync.Mutex
	repo *repo.Repository
	undo *undo.Stack
	log  *slog.Logger
}

// Open opens the database at path.
func Open(path string, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.Store.Logger == nil {
		opts.Store.Logger = opts.Logger
	}

	depth := opts.UndoDepth
	if depth == 0 {
		depth = DefaultUndoDepth
	}

	r, err := repo.Open(path, opts.Store)
	if err != nil {
		return nil, err
	}

	return New(r, undo.New(depth), opts.Logger), nil
}

// New builds an engine from its parts. The engine takes ownership of r.
func New(r *repo.Repository, u *undo.Stack, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{repo: r, undo: u, log: log}
}

// Health returns the database file state.
func (e *Engine) Health() filestore.Health { return e.repo.Health() }

// LoadError returns why the database could not be loaded, if it could not.
func (e *Engine) LoadError() error { return e.repo.LoadError() }

// Path returns the database file path.
func (e *Engine) Path() string { return e.repo.Path() }

// GetAll returns every task in chronological order.
func (e *Engine) GetAll() []task.Task { return e.repo.GetAll() }

// Search returns the tasks matching f in chronological order.
func (e *Engine) Search(f query.Filter) ([]task.Task, error) { return e.repo.Search(f) }

// Locate returns one task.
func (e *Engine) Locate(id int64) (task.Task, error) { return e.repo.Locate(id) }

// UndoSteps returns how many changes can be undone.
func (e *Engine) UndoSteps() int { return e.undo.Len() }

// NextUndo describes the change the next [Engine.Undo] reverts.
func (e *Engine) NextUndo() (string, bool) { return e.undo.Peek() }

// Undo reverts the most recent change and returns its description.
func (e *Engine) Undo() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	desc, err := e.undo.Undo(e.repo)
	if err != nil {
		return "", err
	}

	e.log.Info("undone", "change", desc)

	return desc, nil
}

// Add stores a new task.
func (e *Engine) Add(t task.Task) error {
	return e.mutate(describe("addition", t), func() error {
		return e.repo.Add(t)
	})
}

// Update replaces the task stored under oldID.
func (e *Engine) Update(oldID int64, t task.Task) error {
	return e.mutate(describe("update", t), func() error {
		return e.repo.Update(oldID, t)
	})
}

// Delete removes one task and returns it.
func (e *Engine) Delete(id int64) (task.Task, error) {
	t, err := e.repo.Locate(id)
	if err != nil {
		return task.Task{}, err
	}

	err = e.mutate(describe("deletion", t), func() error {
		return e.repo.Delete(id)
	})
	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

// DeleteMany removes every listed task in one write.
func (e *Engine) DeleteMany(ids []int64) error {
	if len(ids) == 0 {
		return errors.New("deletion: no tasks given")
	}

	if len(ids) == 1 {
		_, err := e.Delete(ids[0])

		return err
	}

	return e.mutate(fmt.Sprintf("deletion of %d tasks", len(ids)), func() error {
		return e.repo.DeleteMany(ids)
	})
}

// DeleteAll removes every task.
func (e *Engine) DeleteAll() error {
	return e.mutate("deletion of all tasks", e.repo.DeleteAll)
}

// SetAll replaces the whole task list.
func (e *Engine) SetAll(tasks []task.Task) error {
	return e.mutate("replacement of all tasks", func() error {
		return e.repo.SetAll(tasks)
	})
}

// MarkDone sets the completion flag of every listed task in one write and
// returns the updated tasks.
func (e *Engine) MarkDone(ids []int64, done bool) ([]task.Task, error) {
	state := "undone"
	if done {
		state = "done"
	}

	return e.editMany(ids, "marking", " as "+state, func(t *task.Task) error {
		t.SetDone(done)

		return nil
	})
}

// Rename changes a task's name.
func (e *Engine) Rename(id int64, name string) (task.Task, error) {
	return e.edit(id, "renaming", func(t *task.Task) error {
		return t.Rename(name)
	})
}

// ChangeKind makes a task floating, a deadline or a timed task.
func (e *Engine) ChangeKind(id int64, k task.Kind) (task.Task, error) {
	return e.edit(id, "edit", func(t *task.Task) error {
		switch k := k.(type) {
		case task.Floating:
			t.ChangeToFloating()

			return nil
		case task.Deadline:
			return t.ChangeToDeadline(k.Due)
		case task.Timed:
			return t.ChangeToTimed(k.Start, k.End)
		default:
			return fmt.Errorf("%w: %T", task.ErrWrongKind, k)
		}
	})
}

// Postpone moves a dated task to new dates of the same kind: a deadline
// task takes a [task.Deadline] and a timed task a [task.Timed]. Floating
// tasks cannot be postponed.
func (e *Engine) Postpone(id int64, to task.Kind) (task.Task, error) {
	return e.edit(id, "postponement", func(t *task.Task) error {
		switch k := to.(type) {
		case task.Deadline:
			return t.ChangeDeadline(k.Due)
		case task.Timed:
			return t.ChangeInterval(k.Start, k.End)
		default:
			return fmt.Errorf("%w: cannot postpone to a floating date", task.ErrWrongKind)
		}
	})
}

// PostponeBy shifts every date of a dated task by d.
func (e *Engine) PostponeBy(id int64, d time.Duration) (task.Task, error) {
	return e.edit(id, "postponement", func(t *task.Task) error {
		if t.Type() == task.TypeFloating {
			return fmt.Errorf("%w: cannot postpone a floating task", task.ErrWrongKind)
		}

		return t.Postpone(d)
	})
}

// Close releases the database file.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}

	return e.repo.Close()
}

// edit applies change to a copy of one task and stores it.
func (e *Engine) edit(id int64, action string, change func(*task.Task) error) (task.Task, error) {
	out, err := e.editMany([]int64{id}, action, "", change)
	if err != nil {
		return task.Task{}, err
	}

	return out[0], nil
}

// editMany applies change to copies of the listed tasks and stores them
// with a single write. Validation errors from change abort before anything
// is written.
func (e *Engine) editMany(ids []int64, action, suffix string, change func(*task.Task) error) ([]task.Task, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: no tasks given", action)
	}

	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.repo.GetAll()
	next := slices.Clone(before)
	changed := make([]task.Task, 0, len(ids))

	for _, id := range ids {
		i := slices.IndexFunc(next, func(t task.Task) bool { return t.ID() == id })
		if i < 0 {
			return nil, fmt.Errorf("%s %d: %w", action, id, repo.ErrNotFound)
		}

		if err := change(&next[i]); err != nil {
			return nil, fmt.Errorf("%s of task %q: %w", action, next[i].Name(), err)
		}

		changed = append(changed, next[i])
	}

	var desc string
	if len(changed) == 1 {
		desc = describe(action, changed[0]) + suffix
	} else {
		desc = fmt.Sprintf("%s of %d tasks%s", action, len(changed), suffix)
	}

	var err error
	if len(changed) == 1 {
		err = e.repo.Update(changed[0].ID(), changed[0])
	} else {
		err = e.repo.SetAll(next)
	}

	if err != nil {
		return nil, err
	}

	e.record(desc, before)

	return changed, nil
}

func (e *Engine) mutate(desc string, fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.repo.GetAll()

	if err := fn(); err != nil {
		return err
	}

	e.record(desc, before)

	return nil
}

func (e *Engine) record(desc string, before []task.Task) {
	e.undo.Push(desc, before)
	e.log.Info("changed", "change", desc, "undo_steps", e.undo.Len())
}

func describe(action string, t task.Task) string {
	return fmt.Sprintf("%s of task %q", action, t.Name())
}

// IsWriteRefusal reports whether err means the database could not be
// written at all, as opposed to a rejected or failed change.
func IsWriteRefusal(err error) bool {
	return errors.Is(err, filestore.ErrLocked) ||
		errors.Is(err, filestore.ErrReadOnly) ||
		errors.Is(err, filestore.ErrPermissionsUnknown) ||
		errors.Is(err, filestore.ErrCorrupt) ||
		errors.Is(err, filestore.ErrClosed)
}
