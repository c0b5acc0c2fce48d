package fs

import (
	"io/fs"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
type ChaosConfig struct {
	ReadFailRate     float64 // Fail ReadFile entirely
	WriteFailRate    float64 // Fail WriteFileAtomic entirely
	PartialWriteRate float64 // Write a truncated file then fail (bypasses atomic rename)
	OpenFailRate     float64 // Fail Open/OpenFile
	StatFailRate     float64 // Fail Stat/Exists
}

// DefaultChaosConfig returns a config with reasonable fault rates for testing.
func DefaultChaosConfig() ChaosConfig {
	return ChaosConfig{
		ReadFailRate:     0.02,
		WriteFailRate:    0.05,
		PartialWriteRate: 0.02,
		OpenFailRate:     0.02,
		StatFailRate:     0.01,
	}
}

// PathState tracks the fault state of a path for consistent error injection.
type PathState int

const (
	// PathNormal means no persistent fault. This is the zero value, so
	// untracked paths are normal.
	PathNormal PathState = iota
	// PathIOError is sticky: the path has a "bad sector" and always returns EIO.
	PathIOError
	// PathReadOnly is sticky for writes: returns EROFS, reads still work.
	PathReadOnly
	// PathNoPermission denies every operation with EACCES.
	PathNoPermission
)

// ChaosMode controls how Chaos behaves.
type ChaosMode uint8

const (
	// ChaosModePassthrough behaves like the underlying FS and ignores both
	// fault rates and path state.
	ChaosModePassthrough ChaosMode = iota

	// ChaosModeInject enables fault-rate injection and path state.
	ChaosModeInject

	// ChaosModeStickyOnly applies only path state. Fault rates are disabled.
	ChaosModeStickyOnly
)

// Chaos wraps an [FS] and injects failures for testing.
//
// All injected errors are real OS errors (syscall.Errno wrapped in
// *fs.PathError) so errors.Is and os.IsPermission behave as for real
// failures. Use [IsInjected] to tell them apart.
type Chaos struct {
	fs     FS
	rng    *rand.Rand
	config ChaosConfig
	mode   atomic.Uint32

	mu         sync.Mutex
	pathStates map[string]PathState

	readFails     atomic.Int64
	writeFails    atomic.Int64
	partialWrites atomic.Int64
	openFails     atomic.Int64
	statFails     atomic.Int64
}

// NewChaos creates a new Chaos filesystem wrapping the given [FS].
// The seed controls random fault injection for reproducibility.
// A new Chaos starts in [ChaosModePassthrough].
func NewChaos(fs FS, seed int64, config ChaosConfig) *Chaos {
	return &Chaos{
		fs:         fs,
		rng:        rand.New(rand.NewSource(seed)),
		config:     config,
		pathStates: make(map[string]PathState),
	}
}

// SetMode updates Chaos behavior. Switching modes never clears path state.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// SetPathState pins path to state until reset.
func (c *Chaos) SetPathState(path string, state PathState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state == PathNormal {
		delete(c.pathStates, path)

		return
	}

	c.pathStates[path] = state
}

// PathState returns the current fault state for a path.
func (c *Chaos) PathState(path string) PathState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pathStates[path]
}

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	ReadFails     int64
	WriteFails    int64
	PartialWrites int64
	OpenFails     int64
	StatFails     int64
}

// Stats returns the current fault injection counts.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		ReadFails:     c.readFails.Load(),
		WriteFails:    c.writeFails.Load(),
		PartialWrites: c.partialWrites.Load(),
		OpenFails:     c.openFails.Load(),
		StatFails:     c.statFails.Load(),
	}
}

func (c *Chaos) currentMode() ChaosMode {
	return ChaosMode(c.mode.Load())
}

// should returns true with the given probability when chaos is injecting.
func (c *Chaos) should(mode ChaosMode, rate float64) bool {
	if mode != ChaosModeInject || rate <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rng.Float64() < rate
}

func (c *Chaos) randIntn(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rng.Intn(n)
}

// stickyErr returns the errno the path state forces for op, or 0.
func (c *Chaos) stickyErr(mode ChaosMode, path string, write bool) syscall.Errno {
	if mode == ChaosModePassthrough {
		return 0
	}

	switch c.PathState(path) {
	case PathIOError:
		return syscall.EIO
	case PathNoPermission:
		return syscall.EACCES
	case PathReadOnly:
		if write {
			return syscall.EROFS
		}
	}

	return 0
}

// pathError creates an *fs.PathError with the given operation, path and
// errno, matching what the OS returns.
func pathError(op, path string, errno syscall.Errno) error {
	pe := &fs.PathError{Op: op, Path: path, Err: errno}
	markInjectedPathError(pe)

	return pe
}

func (c *Chaos) Open(path string) (File, error) {
	mode := c.currentMode()

	if errno := c.stickyErr(mode, path, false); errno != 0 {
		c.openFails.Add(1)

		return nil, pathError("open", path, errno)
	}

	if c.should(mode, c.config.OpenFailRate) {
		c.openFails.Add(1)

		return nil, pathError("open", path, syscall.EIO)
	}

	return c.fs.Open(path)
}

func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	mode := c.currentMode()
	write := flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0

	if errno := c.stickyErr(mode, path, write); errno != 0 {
		c.openFails.Add(1)

		return nil, pathError("open", path, errno)
	}

	if c.should(mode, c.config.OpenFailRate) {
		c.openFails.Add(1)

		return nil, pathError("open", path, syscall.EACCES)
	}

	return c.fs.OpenFile(path, flag, perm)
}

func (c *Chaos) ReadFile(path string) ([]byte, error) {
	mode := c.currentMode()

	if errno := c.stickyErr(mode, path, false); errno != 0 {
		c.readFails.Add(1)

		return nil, pathError("read", path, errno)
	}

	if c.should(mode, c.config.ReadFailRate) {
		c.readFails.Add(1)

		return nil, pathError("read", path, syscall.EIO)
	}

	return c.fs.ReadFile(path)
}

func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	mode := c.currentMode()

	if errno := c.stickyErr(mode, path, true); errno != 0 {
		c.writeFails.Add(1)

		return pathError("write", path, errno)
	}

	if c.should(mode, c.config.WriteFailRate) {
		c.writeFails.Add(1)

		return pathError("write", path, syscall.ENOSPC)
	}

	// Partial write: bypass the atomic rename and leave a truncated file, as
	// a crash in the middle of a non-atomic rewrite would.
	if c.should(mode, c.config.PartialWriteRate) && len(data) > 1 {
		c.partialWrites.Add(1)
		cutoff := c.randIntn(len(data)-1) + 1

		f, err := c.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
		if err != nil {
			return err
		}

		_, err = f.Write(data[:cutoff])
		closeErr := f.Close()

		if err != nil {
			return err
		}

		if closeErr != nil {
			return closeErr
		}

		return pathError("write", path, syscall.EIO)
	}

	return c.fs.WriteFileAtomic(path, data, perm)
}

func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	mode := c.currentMode()

	if errno := c.stickyErr(mode, path, true); errno != 0 {
		return pathError("mkdir", path, errno)
	}

	return c.fs.MkdirAll(path, perm)
}

func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	mode := c.currentMode()

	if errno := c.stickyErr(mode, path, false); errno == syscall.EIO {
		c.statFails.Add(1)

		return nil, pathError("stat", path, errno)
	}

	if c.should(mode, c.config.StatFailRate) {
		c.statFails.Add(1)

		return nil, pathError("stat", path, syscall.EIO)
	}

	return c.fs.Stat(path)
}

func (c *Chaos) Exists(path string) (bool, error) {
	mode := c.currentMode()

	if errno := c.stickyErr(mode, path, false); errno == syscall.EIO {
		c.statFails.Add(1)

		return false, pathError("stat", path, errno)
	}

	if c.should(mode, c.config.StatFailRate) {
		c.statFails.Add(1)

		return false, pathError("stat", path, syscall.EIO)
	}

	return c.fs.Exists(path)
}

var _ FS = (*Chaos)(nil)
