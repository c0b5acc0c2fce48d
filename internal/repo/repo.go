// Package repo is the authoritative in-memory task index backed by a
// [filestore.Store].
//
// Every mutation computes the complete new task list, hands it to the store
// and only commits the index once the durable write succeeded. A failed
// write leaves both the file and the index as they were. Tasks cross the
// package boundary by value, so callers never alias the index.
package repo

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/calvinalkan/doit/internal/filestore"
	"github.com/calvinalkan/doit/internal/query"
	"github.com/calvinalkan/doit/internal/task"
)

var (
	// ErrNotFound is returned when an ID is not in the index.
	ErrNotFound = errors.New("task not found")
	// ErrDuplicate is returned when a mutation would store two tasks with
	// the same ID.
	ErrDuplicate = errors.New("task already exists")
	// ErrInvalidTask is returned for the zero Task, which was never
	// constructed.
	ErrInvalidTask = errors.New("invalid task")
)

// Repository is the in-memory task index. It is safe for concurrent use;
// each call runs to completion under one mutex.
type Repository struct {
	mu      sync.Mutex
	store   *filestore.Store
	index   map[int64]task.Task
	health  filestore.Health
	loadErr error
	log     *slog.Logger
}

// Open opens the database file at path and loads it.
//
// Open succeeds for a locked, read-only, unreadable or corrupt file; the
// condition is reported through [Repository.Health] and mutations are
// refused. The reason a corrupt file was rejected is kept in
// [Repository.LoadError].
func Open(path string, opts filestore.Options) (*Repository, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st, err := filestore.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return New(st, opts.Logger), nil
}

// New loads every task from an already opened store. The repository takes
// ownership of st and closes it in [Repository.Close].
func New(st *filestore.Store, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Repository{
		store: st,
		index: make(map[int64]task.Task),
		log:   log,
	}

	tasks, err := st.ReadAll()
	if err != nil {
		r.loadErr = err
		log.Warn("load repository", "err", err)
	}

	for _, t := range tasks {
		r.index[t.ID()] = t
	}

	r.health = st.Health()
	log.Debug("repository loaded", "tasks", len(r.index), "health", r.health)

	return r
}

// Health returns the cached file state.
func (r *Repository) Health() filestore.Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.health
}

// LoadError returns the error that made the initial load fail, if any.
func (r *Repository) LoadError() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.loadErr
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.store.Path()
}

// Len returns the number of tasks.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.index)
}

// GetAll returns every task in [task.Compare] order.
func (r *Repository) GetAll() []task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	return sorted(r.index)
}

// Search returns the tasks matching f in [task.Compare] order.
func (r *Repository) Search(f query.Filter) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out, err := query.Apply(sorted(r.index), f)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return out, nil
}

// Locate returns the task with the given ID.
func (r *Repository) Locate(id int64) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.index[id]
	if !ok {
		return task.Task{}, fmt.Errorf("locate %d: %w", id, ErrNotFound)
	}

	return t.Clone(), nil
}

// Add stores a new task.
func (r *Repository) Add(t task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writable(); err != nil {
		return fmt.Errorf("add: %w", err)
	}

	if t.ID() == 0 {
		return fmt.Errorf("add: %w", ErrInvalidTask)
	}

	if _, ok := r.index[t.ID()]; ok {
		return fmt.Errorf("add %d: %w", t.ID(), ErrDuplicate)
	}

	next := maps.Clone(r.index)
	next[t.ID()] = t.Clone()

	return r.commit("add", next)
}

// Update replaces the task stored under oldID with t. The replacement is
// stored under t's own ID, which usually equals oldID.
func (r *Repository) Update(oldID int64, t task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writable(); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	if t.ID() == 0 {
		return fmt.Errorf("update: %w", ErrInvalidTask)
	}

	if _, ok := r.index[oldID]; !ok {
		return fmt.Errorf("update %d: %w", oldID, ErrNotFound)
	}

	if _, ok := r.index[t.ID()]; ok && t.ID() != oldID {
		return fmt.Errorf("update %d as %d: %w", oldID, t.ID(), ErrDuplicate)
	}

	next := maps.Clone(r.index)
	delete(next, oldID)
	next[t.ID()] = t.Clone()

	return r.commit("update", next)
}

// Delete removes one task.
func (r *Repository) Delete(id int64) error {
	return r.DeleteMany([]int64{id})
}

// DeleteMany removes every listed task in one write. If any ID is missing
// nothing is removed.
func (r *Repository) DeleteMany(ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writable(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	next := maps.Clone(r.index)

	for _, id := range ids {
		if _, ok := r.index[id]; !ok {
			return fmt.Errorf("delete %d: %w", id, ErrNotFound)
		}

		delete(next, id)
	}

	return r.commit("delete", next)
}

// DeleteAll removes every task.
func (r *Repository) DeleteAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writable(); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}

	return r.commit("delete all", make(map[int64]task.Task))
}

// SetAll replaces the whole index with tasks.
func (r *Repository) SetAll(tasks []task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writable(); err != nil {
		return fmt.Errorf("set all: %w", err)
	}

	next := make(map[int64]task.Task, len(tasks))

	for _, t := range tasks {
		if t.ID() == 0 {
			return fmt.Errorf("set all: %w", ErrInvalidTask)
		}

		if _, ok := next[t.ID()]; ok {
			return fmt.Errorf("set all %d: %w", t.ID(), ErrDuplicate)
		}

		next[t.ID()] = t.Clone()
	}

	return r.commit("set all", next)
}

// Close releases the underlying store. It is safe to call more than once.
func (r *Repository) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Close(); err != nil {
		return fmt.Errorf("close repository: %w", err)
	}

	return nil
}

// writable refreshes the cached health and returns the refusal error when
// writes are not allowed.
func (r *Repository) writable() error {
	r.health = r.store.Health()

	return r.health.Err()
}

// commit writes next to disk and, only on success, makes it the index.
func (r *Repository) commit(op string, next map[int64]task.Task) error {
	tasks := sorted(next)

	if err := r.store.WriteAll(tasks); err != nil {
		r.health = r.store.Health()
		r.log.Warn("mutation not applied", "op", op, "err", err)

		return fmt.Errorf("%s: %w", op, err)
	}

	r.index = next
	r.log.Debug("mutation applied", "op", op, "tasks", len(next))

	return nil
}

// sorted returns copies of the tasks in m, chronologically with ties broken
// by ID so the file order is deterministic.
func sorted(m map[int64]task.Task) []task.Task {
	out := slices.Collect(maps.Values(m))

	slices.SortFunc(out, func(a, b task.Task) int {
		if c := task.Compare(a, b); c != 0 {
			return c
		}

		return cmp.Compare(a.ID(), b.ID())
	})

	return out
}
