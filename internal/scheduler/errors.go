package scheduler

import "fmt"

// Phase identifies the step of a refresh cycle that failed.
type Phase int

const (
	// PhaseBegin covers acquiring the writer lock and creating the temp file.
	PhaseBegin Phase = iota
	// PhaseWalk covers traversal of the configured roots.
	PhaseWalk
	// PhaseCommit covers flushing and renaming the snapshot into place.
	PhaseCommit
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseBegin:
		return "begin"
	case PhaseWalk:
		return "walk"
	case PhaseCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// RefreshError reports a refresh cycle that produced no new snapshot.
// The previous snapshot is still in place when it is returned.
type RefreshError struct {
	CycleID string
	Phase   Phase
	Err     error
}

// Error implements the error interface for RefreshError.
func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh %s failed during %s: %v", e.CycleID, e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *RefreshError) Unwrap() error {
	return e.Err
}
