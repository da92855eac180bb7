// Package scheduler runs directory walks and commits the results to the
// snapshot cache, either once or on a recurring schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/dirtree/internal/cache"
	"github.com/harrison/dirtree/internal/history"
	"github.com/harrison/dirtree/internal/walk"
)

// Logger is the subset of logger methods the scheduler uses.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// Recorder persists the outcome of each refresh cycle.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Config describes what a refresh walks and how often.
type Config struct {
	Roots    []string
	Options  walk.Options
	Interval time.Duration
}

// Report describes one refresh cycle.
type Report struct {
	CycleID     string
	Started     time.Time
	Finished    time.Time
	Records     int
	Diagnostics []error
}

// Scheduler owns the refresh cycle. At most one cycle runs at a time per
// Scheduler; the cache's writer lock extends that across processes.
type Scheduler struct {
	cfg      Config
	store    *cache.Store
	walker   *walk.Walker
	logger   Logger
	recorder Recorder

	mu      sync.Mutex
	trigger chan struct{}
	now     func() time.Time
}

// New creates a Scheduler. logger and recorder may be nil.
func New(cfg Config, store *cache.Store, walker *walk.Walker, logger Logger, recorder Recorder) *Scheduler {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		walker:   walker,
		logger:   logger,
		recorder: recorder,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// RefreshOnce walks all roots into a new snapshot and commits it.
//
// Unreadable directories are logged as warnings and returned in
// Report.Diagnostics; the snapshot collected around them is still committed.
// If the cycle cannot produce a snapshot at all, or ctx is cancelled before
// commit, the previous snapshot is left untouched and a *RefreshError is
// returned.
func (s *Scheduler) RefreshOnce(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &Report{CycleID: uuid.NewString(), Started: s.now()}
	s.logger.LogInfo(fmt.Sprintf("Refresh %s started: %d root(s), max depth %d", report.CycleID, len(s.cfg.Roots), s.cfg.Options.MaxDepth))

	pending, err := s.store.Begin(ctx)
	if err != nil {
		return report, s.fail(ctx, report, PhaseBegin, err)
	}

	res, err := s.walker.WalkRoots(ctx, s.cfg.Roots, s.cfg.Options, walk.Synchronized(pending))
	report.Records = res.Records
	report.Diagnostics = res.Diagnostics
	for _, d := range res.Diagnostics {
		s.logger.LogWarn(fmt.Sprintf("Skipped unreadable directory: %v", d))
	}
	if err != nil {
		pending.Abort()
		return report, s.fail(ctx, report, PhaseWalk, err)
	}

	if err := pending.Commit(); err != nil {
		return report, s.fail(ctx, report, PhaseCommit, err)
	}

	report.Finished = s.now()
	s.logger.LogInfo(fmt.Sprintf("Refresh %s committed %d paths to %s (%d skipped, %s)",
		report.CycleID, report.Records, s.store.Path(), len(report.Diagnostics), report.Finished.Sub(report.Started).Round(time.Millisecond)))
	s.record(ctx, report, history.StatusCommitted, nil)
	return report, nil
}

func (s *Scheduler) fail(ctx context.Context, report *Report, phase Phase, err error) error {
	report.Finished = s.now()
	rerr := &RefreshError{CycleID: report.CycleID, Phase: phase, Err: err}

	status := history.StatusFailed
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		status = history.StatusAborted
		s.logger.LogWarn(fmt.Sprintf("Refresh %s aborted during %s; previous snapshot kept", report.CycleID, phase))
	} else {
		s.logger.LogError(rerr.Error())
	}
	s.record(ctx, report, status, err)
	return rerr
}

func (s *Scheduler) record(ctx context.Context, report *Report, status string, err error) {
	if s.recorder == nil {
		return
	}
	run := history.Run{
		ID:          report.CycleID,
		StartedAt:   report.Started,
		FinishedAt:  report.Finished,
		Status:      status,
		Records:     report.Records,
		Diagnostics: len(report.Diagnostics),
	}
	if err != nil {
		run.Error = err.Error()
	}
	// Record even when the cycle was cancelled.
	if rerr := s.recorder.Record(context.WithoutCancel(ctx), run); rerr != nil {
		s.logger.LogWarn(fmt.Sprintf("Failed to record refresh %s: %v", report.CycleID, rerr))
	}
}

// Trigger requests a refresh outside the regular schedule. It never blocks;
// requests made while one is already queued are merged.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes immediately and then every Config.Interval, or on Trigger,
// until ctx is done. Cycle failures are logged and the loop continues.
// Cancelling ctx aborts an in-flight cycle before commit; the snapshot on
// disk is never left partially written.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", s.cfg.Interval)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.LogInfo(fmt.Sprintf("Refreshing %s every %s", s.store.Path(), s.cfg.Interval))
	for {
		if _, err := s.RefreshOnce(ctx); err != nil && ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			s.logger.LogInfo("Refresh loop stopped")
			return nil
		case <-ticker.C:
		case <-s.trigger:
			s.logger.LogDebug("Refresh triggered on demand")
		}
	}
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string)  {}
func (nopLogger) LogWarn(string)  {}
func (nopLogger) LogError(string) {}
