// Package filelock provides inter-process file locking and atomic
// replace-on-commit file writes.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// retryDelay is how often LockContext polls a lock held by another process.
const retryDelay = 50 * time.Millisecond

// FileLock wraps a flock file lock for coordinating access to files.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a new file lock for the given path.
// The lock file is created on first Lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Path returns the lock file path.
func (fl *FileLock) Path() string {
	return fl.path
}

// Lock acquires an exclusive lock on the file, blocking until the lock is available.
func (fl *FileLock) Lock() error {
	if err := fl.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fl.path, err)
	}
	return nil
}

// LockContext acquires an exclusive lock, polling until it is available or ctx is done.
func (fl *FileLock) LockContext(ctx context.Context) error {
	locked, err := fl.flock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fl.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s", fl.path)
	}
	return nil
}

// TryLock attempts to acquire an exclusive lock on the file without blocking.
// Returns true if the lock was acquired, false if the lock is held elsewhere.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}

// ErrClosed is returned when using an AtomicFile after Commit or Abort.
var ErrClosed = errors.New("atomic file already closed")

// AtomicFile is a temporary file co-located with a target path. Content
// written to it becomes visible at the target only on Commit, by rename, so a
// reader of the target sees either the old or the new content in full.
type AtomicFile struct {
	target string
	temp   *os.File
	done   bool
}

// CreateAtomic creates the temporary file for target, creating the parent
// directory if needed. The temp file lives in the same directory so the
// final rename stays on one filesystem.
func CreateAtomic(target string) (*AtomicFile, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &AtomicFile{target: target, temp: temp}, nil
}

// Name returns the temporary file path.
func (af *AtomicFile) Name() string {
	return af.temp.Name()
}

// Write appends p to the temporary file.
func (af *AtomicFile) Write(p []byte) (int, error) {
	if af.done {
		return 0, ErrClosed
	}
	return af.temp.Write(p)
}

// Commit flushes the temporary file and renames it onto the target.
// If the rename fails the temporary file is left in place for inspection and
// the target keeps its previous content. Failures before the rename remove
// the temporary file.
func (af *AtomicFile) Commit() error {
	if af.done {
		return ErrClosed
	}
	af.done = true
	tempPath := af.temp.Name()

	if err := af.temp.Sync(); err != nil {
		af.temp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := af.temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, af.target); err != nil {
		return fmt.Errorf("failed to rename temp file %s to %s: %w", tempPath, af.target, err)
	}
	return nil
}

// Abort discards the temporary file. The target is untouched.
// Abort after Commit is a no-op.
func (af *AtomicFile) Abort() error {
	if af.done {
		return nil
	}
	af.done = true
	af.temp.Close()
	if err := os.Remove(af.temp.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}

// AtomicWrite replaces path with data using CreateAtomic and Commit.
func AtomicWrite(path string, data []byte) error {
	af, err := CreateAtomic(path)
	if err != nil {
		return err
	}
	if _, err := af.Write(data); err != nil {
		af.Abort()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	return af.Commit()
}
