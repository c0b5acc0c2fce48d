// Package filestore persists the task list in a human-editable text file.
//
// A [Store] holds an exclusive advisory lock for its whole lifetime. The lock
// lives on a sidecar file under a ".locks" directory next to the database,
// because every write replaces the database file atomically and a lock on
// the replaced inode would no longer guard the path.
//
// The store never partially trusts a file: the first malformed line marks
// the store [Corrupt], reads return nothing and writes are refused until the
// file is repaired by hand and the store reopened.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/calvinalkan/doit/internal/fs"
	"github.com/calvinalkan/doit/internal/task"
)

// DefaultFileName is the database file name used when none is configured.
const DefaultFileName = "database.txt"

const (
	lockDirName = ".locks"
	filePerm    = 0o644
)

// Options configures [Open]. The zero value is usable.
type Options struct {
	// FS is the filesystem. Defaults to [fs.NewReal].
	FS fs.FS
	// Locker takes the advisory lock. Defaults to [fs.NewLocker] over FS.
	Locker *fs.Locker
	// Now stamps starter tasks and the last-modified comment.
	// Defaults to [time.Now].
	Now func() time.Time
	// Logger receives diagnostics. Defaults to a discarding logger.
	Logger *slog.Logger
	// NoStarter skips seeding a newly created file with welcome tasks.
	// The file is still created, empty.
	NoStarter bool
}

// Store is an open database file.
type Store struct {
	path     string
	lockPath string
	fs       fs.FS
	locker   *fs.Locker
	now      func() time.Time
	log      *slog.Logger

	mu     sync.Mutex
	health Health
	lock   *fs.Lock
	closed bool
}

// LockPath returns the sidecar lock file used for the database at path.
func LockPath(path string) string {
	return filepath.Join(filepath.Dir(path), lockDirName, filepath.Base(path)+".lock")
}

// Open prepares the database file at path and reports its state through
// [Store.Health]. Access problems never fail Open; they leave the store
// [Locked], [ReadOnly] or [PermissionsUnknown]. Open only fails for an empty
// path.
//
// A missing file is created and, unless opts.NoStarter is set, seeded with
// [StarterTasks].
func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: empty path")
	}

	if opts.FS == nil {
		opts.FS = fs.NewReal()
	}

	if opts.Locker == nil {
		opts.Locker = fs.NewLocker(opts.FS)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Store{
		path:     path,
		lockPath: LockPath(path),
		fs:       opts.FS,
		locker:   opts.Locker,
		now:      opts.Now,
		log:      opts.Logger.With("file", path),
		health:   PermissionsUnknown,
	}

	existed, err := s.fs.Exists(path)
	if err != nil {
		s.log.Warn("stat database file", "err", err)
	}

	if !s.openReadWrite() {
		if s.health != Locked {
			s.openReadOnly()
		}

		return s, nil
	}

	if !existed && err == nil {
		s.log.Info("database file missing, assuming first launch")

		var seed []task.Task
		if !opts.NoStarter {
			seed = StarterTasks(s.now())
		}

		if err := s.WriteAll(seed); err != nil {
			s.log.Warn("seed database file", "err", err)
		}
	}

	return s, nil
}

// openReadWrite takes the lock and checks the file can be opened for
// writing. On success the store is OK and keeps the lock.
func (s *Store) openReadWrite() bool {
	lock, err := s.locker.TryLock(s.lockPath)
	if err != nil {
		if errors.Is(err, fs.ErrWouldBlock) {
			s.health = Locked
			s.log.Warn("database file is locked")

			return false
		}

		s.log.Warn("cannot take lock, trying read-only", "err", err)

		return false
	}

	f, err := s.fs.OpenFile(s.path, os.O_RDWR|os.O_CREATE, filePerm)
	if err != nil {
		_ = lock.Close()
		s.log.Warn("cannot open for writing", "err", err)

		return false
	}

	_ = f.Close()

	s.lock = lock
	s.health = OK
	s.log.Debug("full permissions obtained")

	return true
}

func (s *Store) openReadOnly() {
	f, err := s.fs.Open(s.path)
	if err != nil {
		s.health = PermissionsUnknown
		s.log.Error("unknown file permissions", "err", err)

		return
	}

	_ = f.Close()

	s.health = ReadOnly
	s.log.Warn("opened read-only")
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Health returns the current file state.
func (s *Store) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.health
}

// ReadAll loads every record from the file.
//
// It returns an empty list and no error when the health does not allow
// reading. Any malformed line, or a failure to read the file at all, marks
// the store [Corrupt] and returns an empty list with a [*CorruptError].
func (s *Store) ReadAll() ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.health.Readable() {
		return []task.Task{}, nil
	}

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return []task.Task{}, s.markCorrupt(&CorruptError{Reason: "read failed", Err: err})
	}

	tasks, err := Decode(data)
	if err != nil {
		return []task.Task{}, s.markCorrupt(err)
	}

	s.log.Debug("read database", "tasks", len(tasks))

	return tasks, nil
}

func (s *Store) markCorrupt(err error) error {
	s.health = Corrupt
	s.log.Error("database file rejected", "err", err)

	return err
}

// WriteAll replaces the file content with tasks, in the given order.
//
// The write is refused without touching the file unless the store is OK.
// A corrupt store refuses with [ErrCorrupt] so the damaged file survives for
// recovery. I/O failures wrap [ErrDurableWrite] and leave the previous
// content in place.
func (s *Store) WriteAll(tasks []task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if err := s.health.Err(); err != nil {
		s.log.Warn("write refused", "health", s.health)

		return fmt.Errorf("write %s: %w", s.path, err)
	}

	data := Encode(tasks, s.now())

	if err := s.fs.WriteFileAtomic(s.path, data, filePerm); err != nil {
		s.log.Error("write failed", "err", err)

		return fmt.Errorf("%w: %w", ErrDurableWrite, err)
	}

	s.log.Debug("wrote database", "tasks", len(tasks), "bytes", len(data))

	return nil
}

// Close releases the lock. It is safe to call more than once and on a store
// that never obtained the lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	err := s.lock.Close()
	s.lock = nil

	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}

	s.log.Debug("closed")

	return nil
}
