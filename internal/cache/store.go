// Package cache persists directory snapshots as newline-delimited text.
//
// A snapshot replaces its predecessor by writing a temporary file next to the
// cache file and renaming it into place, so concurrent readers always see a
// complete snapshot. Writers are serialized across processes with a
// "<cache>.lock" flock; readers take no lock.
package cache

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/dirtree/internal/filelock"
)

// ErrNotFound is returned by Read when no snapshot has been built yet.
var ErrNotFound = errors.New("cache not found")

// Store manages the snapshot file at a single path.
type Store struct {
	path string
}

// NewStore returns a Store for the cache file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the cache file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureExists creates an empty cache file if none exists. An existing file
// is never truncated.
func (s *Store) EnsureExists() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	return f.Close()
}

// Read returns the full content of the current snapshot.
// It fails with ErrNotFound if the cache file does not exist.
func (s *Store) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return "", fmt.Errorf("failed to read cache: %w", err)
	}
	return string(data), nil
}

// ReadLines returns the snapshot as a slice of paths.
func (s *Store) ReadLines() ([]string, error) {
	content, err := s.Read()
	if err != nil {
		return nil, err
	}
	return Decode(content), nil
}

// Commit replaces the snapshot with records in one atomic step, holding the
// writer lock for the duration.
func (s *Store) Commit(ctx context.Context, records []string) error {
	lock := filelock.NewFileLock(s.path + ".lock")
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := lock.LockContext(ctx); err != nil {
		return err
	}
	defer lock.Unlock()

	return filelock.AtomicWrite(s.path, Encode(records))
}

// Begin starts a new snapshot. It acquires the writer lock, waiting for
// another process's refresh to finish or ctx to end, and opens the temporary
// file. The returned Pending must be finished with Commit or Abort.
func (s *Store) Begin(ctx context.Context) (*Pending, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	lock := filelock.NewFileLock(s.path + ".lock")
	if err := lock.LockContext(ctx); err != nil {
		return nil, err
	}

	af, err := filelock.CreateAtomic(s.path)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	return &Pending{file: af, w: bufio.NewWriter(af), lock: lock}, nil
}

// Pending is an in-progress snapshot. It is a file-backed buffer sink for a
// walk: each Emit appends one line to the temporary file. Pending is not safe
// for concurrent use; wrap it with walk.Synchronized when walking in parallel.
type Pending struct {
	file    *filelock.AtomicFile
	w       *bufio.Writer
	lock    *filelock.FileLock
	records int
	done    bool
}

// Emit appends one path to the snapshot.
func (p *Pending) Emit(path string) error {
	if p.done {
		return filelock.ErrClosed
	}
	if _, err := p.w.WriteString(path); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := p.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	p.records++
	return nil
}

// Records returns the number of paths written so far.
func (p *Pending) Records() int {
	return p.records
}

// Commit makes the snapshot visible to readers and releases the writer lock.
func (p *Pending) Commit() error {
	if p.done {
		return filelock.ErrClosed
	}
	p.done = true
	defer p.lock.Unlock()

	if err := p.w.Flush(); err != nil {
		p.file.Abort()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return p.file.Commit()
}

// Abort discards the snapshot; the previous one stays authoritative.
func (p *Pending) Abort() error {
	if p.done {
		return nil
	}
	p.done = true
	defer p.lock.Unlock()
	return p.file.Abort()
}

// Encode serializes records in the cache file format.
func Encode(records []string) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		buf.WriteString(r)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Decode parses cache file content into paths.
func Decode(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
