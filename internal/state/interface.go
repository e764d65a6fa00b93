package state

import (
	"io"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// SnapshotStore persists the current run snapshot.
type SnapshotStore interface {
	Save(s *models.RunState) error
	Load() *models.RunState
}

// HistoryStore records past runs and their attempts.
type HistoryStore interface {
	io.Closer
	RecordRun(r *RunRecord) error
	RecordAttempt(a *AttemptRecord) error
	ListRuns(limit int) ([]RunRecord, error)
	ListAttempts(runID string) ([]AttemptRecord, error)
}

// Compile-time verification of the implementations.
var (
	_ SnapshotStore = (*Tracker)(nil)
	_ HistoryStore  = (*DB)(nil)
)
