package filelock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewFileLock(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")

	lock := NewFileLock(lockPath)
	if lock == nil {
		t.Fatal("NewFileLock should not return nil")
	}

	if lock.Path() != lockPath {
		t.Errorf("Expected lock path %s, got %s", lockPath, lock.Path())
	}
}

func TestLockUnlock(t *testing.T) {
	tmpDir := t.TempDir()
	lock := NewFileLock(filepath.Join(tmpDir, "test.lock"))

	if err := lock.Lock(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
}

func TestTryLock(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")

	lock1 := NewFileLock(lockPath)
	lock2 := NewFileLock(lockPath)

	acquired, err := lock1.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !acquired {
		t.Fatal("First TryLock should succeed")
	}

	acquired, err = lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if acquired {
		t.Error("Second TryLock should fail when lock is held")
	}

	if err := lock1.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	acquired, err = lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !acquired {
		t.Error("TryLock should succeed after unlock")
	}
	lock2.Unlock()
}

func TestLockContext(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")

	holder := NewFileLock(lockPath)
	if err := holder.Lock(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	waiter := NewFileLock(lockPath)
	err := waiter.LockContext(ctx)
	if err == nil {
		t.Fatal("LockContext should fail while lock is held")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}

	holder.Unlock()

	if err := waiter.LockContext(context.Background()); err != nil {
		t.Fatalf("LockContext should succeed after release: %v", err)
	}
	waiter.Unlock()
}

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "test.txt")

	content := []byte("Hello, World!")
	if err := AtomicWrite(targetPath, content); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	readContent, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(readContent) != string(content) {
		t.Errorf("Expected content %q, got %q", string(content), string(readContent))
	}
}

func TestAtomicWriteOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "test.txt")

	if err := os.WriteFile(targetPath, []byte("Initial content"), 0644); err != nil {
		t.Fatalf("Failed to write initial file: %v", err)
	}

	newContent := []byte("New content")
	if err := AtomicWrite(targetPath, newContent); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	readContent, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(readContent) != string(newContent) {
		t.Errorf("Expected content %q, got %q", string(newContent), string(readContent))
	}
}

func TestConcurrentAtomicWrites(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "test.txt")

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			content := []byte(string(rune('A' + id)))
			if err := AtomicWrite(targetPath, content); err != nil {
				t.Errorf("AtomicWrite failed for goroutine %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	content, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if len(content) != 1 {
		t.Errorf("Expected 1 byte, got %d bytes: %q", len(content), string(content))
	}
}

func TestAtomicWritePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "test.txt")

	if err := AtomicWrite(targetPath, []byte("data")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("Expected permissions 0644, got %o", info.Mode().Perm())
	}
}

func TestAtomicWriteCreateDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "nested", "deeper", "test.txt")

	if err := AtomicWrite(targetPath, []byte("data")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	if _, err := os.Stat(targetPath); err != nil {
		t.Errorf("Target file should exist: %v", err)
	}
}

func TestAtomicFileNotVisibleBeforeCommit(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "snapshot.txt")
	if err := os.WriteFile(targetPath, []byte("old\n"), 0644); err != nil {
		t.Fatalf("Failed to write initial file: %v", err)
	}

	af, err := CreateAtomic(targetPath)
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	if filepath.Dir(af.Name()) != tmpDir {
		t.Errorf("Temp file %s should be co-located with target", af.Name())
	}
	if _, err := af.Write([]byte("new\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	content, _ := os.ReadFile(targetPath)
	if string(content) != "old\n" {
		t.Errorf("Target changed before commit: %q", content)
	}

	if err := af.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	content, _ = os.ReadFile(targetPath)
	if string(content) != "new\n" {
		t.Errorf("Expected committed content, got %q", content)
	}

	if _, err := af.Write([]byte("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after commit should return ErrClosed, got %v", err)
	}
}

func TestAtomicFileAbort(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "snapshot.txt")

	af, err := CreateAtomic(targetPath)
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	af.Write([]byte("discarded"))
	if err := af.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}

	entries, _ := os.ReadDir(tmpDir)
	if len(entries) != 0 {
		t.Errorf("Expected empty directory after abort, found %d entries", len(entries))
	}
	if err := af.Commit(); !errors.Is(err, ErrClosed) {
		t.Errorf("Commit after abort should return ErrClosed, got %v", err)
	}
}

func TestAtomicFileRenameFailureKeepsTemp(t *testing.T) {
	tmpDir := t.TempDir()
	// A non-empty directory at the target path makes the rename fail.
	targetPath := filepath.Join(tmpDir, "snapshot.txt")
	if err := os.MkdirAll(filepath.Join(targetPath, "occupied"), 0755); err != nil {
		t.Fatalf("Failed to create blocking directory: %v", err)
	}

	af, err := CreateAtomic(targetPath)
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	af.Write([]byte("content"))
	tempPath := af.Name()

	err = af.Commit()
	if err == nil {
		t.Fatal("Commit should fail when target is a directory")
	}
	if !strings.Contains(err.Error(), "failed to rename") {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, statErr := os.Stat(tempPath); statErr != nil {
		t.Errorf("Temp file should be left in place after rename failure: %v", statErr)
	}
}

func TestCreateAtomicUnwritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	tmpDir := t.TempDir()
	roDir := filepath.Join(tmpDir, "ro")
	if err := os.Mkdir(roDir, 0555); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	t.Cleanup(func() { os.Chmod(roDir, 0755) })

	if _, err := CreateAtomic(filepath.Join(roDir, "snapshot.txt")); err == nil {
		t.Fatal("CreateAtomic should fail in a read-only directory")
	}
}
