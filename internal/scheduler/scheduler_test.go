package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/dirtree/internal/cache"
	"github.com/harrison/dirtree/internal/history"
	"github.com/harrison/dirtree/internal/walk"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg)
}

func (l *captureLogger) LogDebug(m string) { l.add("DEBUG", m) }
func (l *captureLogger) LogInfo(m string)  { l.add("INFO", m) }
func (l *captureLogger) LogWarn(m string)  { l.add("WARN", m) }
func (l *captureLogger) LogError(m string) { l.add("ERROR", m) }

func (l *captureLogger) has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

type captureRecorder struct {
	mu   sync.Mutex
	runs []history.Run
}

func (r *captureRecorder) Record(_ context.Context, run history.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (r *captureRecorder) last() history.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[len(r.runs)-1]
}

type failingFs struct {
	afero.Fs
	fail string
}

func (f *failingFs) Open(name string) (afero.File, error) {
	if name == f.fail {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

func newFixture(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, d := range []string{"/a/b/c", "/a/.git/refs", "/a/build", "/z/y"} {
		require.NoError(t, fsys.MkdirAll(d, 0755))
	}
	return fsys
}

func testConfig(roots ...string) Config {
	return Config{
		Roots:    roots,
		Options:  walk.Options{Forbidden: []string{".", "build"}, MaxDepth: walk.Unlimited},
		Interval: time.Hour,
	}
}

func TestRefreshOnce_Commits(t *testing.T) {
	store := cache.NewStore(filepath.Join(t.TempDir(), "dirs.txt"))
	logger := &captureLogger{}
	recorder := &captureRecorder{}
	s := New(testConfig("/a", "/z"), store, walk.NewWalker(newFixture(t)), logger, recorder)

	report, err := s.RefreshOnce(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.CycleID)
	assert.Equal(t, 5, report.Records)
	assert.Empty(t, report.Diagnostics)
	assert.False(t, report.Finished.Before(report.Started))

	lines, err := store.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/a/b", "/a/b/c", "/z", "/z/y"}, lines)

	require.Equal(t, 1, recorder.count())
	run := recorder.last()
	assert.Equal(t, report.CycleID, run.ID)
	assert.Equal(t, history.StatusCommitted, run.Status)
	assert.Equal(t, 5, run.Records)
	assert.True(t, logger.has("INFO", "committed 5 paths"))
}

func TestRefreshOnce_PartialSnapshotStillCommitted(t *testing.T) {
	store := cache.NewStore(filepath.Join(t.TempDir(), "dirs.txt"))
	logger := &captureLogger{}
	fsys := &failingFs{Fs: newFixture(t), fail: "/a/b"}
	s := New(testConfig("/a", "/z"), store, walk.NewWalker(fsys), logger, nil)

	report, err := s.RefreshOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 1)

	lines, err := store.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/a/b", "/z", "/z/y"}, lines)
	assert.True(t, logger.has("WARN", "/a/b"))
}

func TestRefreshOnce_BeginFailureKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dirs.txt")
	store := cache.NewStore(path)
	require.NoError(t, store.Commit(context.Background(), []string{"/previous"}))

	// Occupy the lock path with a directory so the writer cannot start.
	require.NoError(t, os.Remove(path+".lock"))
	require.NoError(t, os.Mkdir(path+".lock", 0755))

	logger := &captureLogger{}
	recorder := &captureRecorder{}
	s := New(testConfig("/a"), store, walk.NewWalker(newFixture(t)), logger, recorder)

	_, err := s.RefreshOnce(context.Background())
	require.Error(t, err)

	var rerr *RefreshError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, PhaseBegin, rerr.Phase)

	content, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "/previous\n", content)

	assert.Equal(t, history.StatusFailed, recorder.last().Status)
	assert.NotEmpty(t, recorder.last().Error)
	assert.True(t, logger.has("ERROR", "during begin"))
}

func TestRefreshOnce_NoRootsIsInvalidInput(t *testing.T) {
	store := cache.NewStore(filepath.Join(t.TempDir(), "dirs.txt"))
	require.NoError(t, store.Commit(context.Background(), []string{"/previous"}))
	s := New(testConfig(), store, walk.NewWalker(newFixture(t)), nil, nil)

	_, err := s.RefreshOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, walk.ErrInvalidInput)

	var rerr *RefreshError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, PhaseWalk, rerr.Phase)

	content, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "/previous\n", content)
}

func TestRefreshOnce_CancelledIsAborted(t *testing.T) {
	dir := t.TempDir()
	store := cache.NewStore(filepath.Join(dir, "dirs.txt"))
	require.NoError(t, store.Commit(context.Background(), []string{"/previous"}))
	recorder := &captureRecorder{}
	s := New(testConfig("/a"), store, walk.NewWalker(newFixture(t)), nil, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RefreshOnce(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, history.StatusAborted, recorder.last().Status)

	content, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "/previous\n", content)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestRefreshOnce_ConcurrentCallsAreSerialized(t *testing.T) {
	store := cache.NewStore(filepath.Join(t.TempDir(), "dirs.txt"))
	s := New(testConfig("/a", "/z"), store, walk.NewWalker(newFixture(t)), nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.RefreshOnce(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	lines, err := store.ReadLines()
	require.NoError(t, err)
	assert.Len(t, lines, 5)
}

func TestRun_RepeatsUntilCancelled(t *testing.T) {
	store := cache.NewStore(filepath.Join(t.TempDir(), "dirs.txt"))
	recorder := &captureRecorder{}
	cfg := testConfig("/a")
	cfg.Interval = 10 * time.Millisecond
	s := New(cfg, store, walk.NewWalker(newFixture(t)), nil, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return recorder.count() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	_, err := store.Read()
	assert.NoError(t, err)
}

func TestRun_Trigger(t *testing.T) {
	store := cache.NewStore(filepath.Join(t.TempDir(), "dirs.txt"))
	recorder := &captureRecorder{}
	s := New(testConfig("/a"), store, walk.NewWalker(newFixture(t)), nil, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool { return recorder.count() == 1 }, 5*time.Second, 5*time.Millisecond)
	s.Trigger()
	s.Trigger()
	assert.Eventually(t, func() bool { return recorder.count() >= 2 }, 5*time.Second, 5*time.Millisecond)
}

func TestRun_RequiresPositiveInterval(t *testing.T) {
	cfg := testConfig("/a")
	cfg.Interval = 0
	s := New(cfg, cache.NewStore(filepath.Join(t.TempDir(), "dirs.txt")), walk.NewWalker(newFixture(t)), nil, nil)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval must be positive")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "begin", PhaseBegin.String())
	assert.Equal(t, "walk", PhaseWalk.String())
	assert.Equal(t, "commit", PhaseCommit.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
