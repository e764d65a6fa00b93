package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// Attempt outcomes recorded in the history database.
const (
	OutcomeDone           = "done"
	OutcomeAgentFailed    = "agent-failed"
	OutcomeConflict       = "conflict"
	OutcomeMergeFailed    = "merge-failed"
	OutcomeWorktreeFailed = "worktree-failed"
	OutcomeCancelled      = "cancelled"
)

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID           string
	Repo         string
	TargetBranch string
	Agent        string
	StartedAt    time.Time
	CompletedAt  *time.Time
	Total        int
	Done         int
	Failed       int
}

// AttemptRecord is one agent attempt for a work package.
type AttemptRecord struct {
	RunID     string
	WPID      string
	Attempt   int
	Outcome   string
	Detail    string
	StartedAt time.Time
	Duration  time.Duration
}

// RunRecordFromState summarizes a run snapshot into a history row.
func RunRecordFromState(s *models.RunState) *RunRecord {
	sum := s.Summary()
	rec := &RunRecord{
		ID:           s.ID,
		Repo:         s.Config.Repo,
		TargetBranch: s.Config.Branch,
		Agent:        string(s.Config.Agent),
		CompletedAt:  s.CompletedAt,
		Total:        sum.Total,
		Done:         sum.Done,
		Failed:       sum.Failed,
	}
	if s.StartedAt != nil {
		rec.StartedAt = *s.StartedAt
	}
	return rec
}

// RecordRun inserts a run or updates its completion and counts.
func (db *DB) RecordRun(r *RunRecord) error {
	var completed sql.NullString
	if r.CompletedAt != nil {
		completed = sql.NullString{String: formatTime(*r.CompletedAt), Valid: true}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO runs (id, repo, target_branch, agent, started_at, completed_at, total, done, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			total = excluded.total,
			done = excluded.done,
			failed = excluded.failed`,
		r.ID, r.Repo, r.TargetBranch, r.Agent, formatTime(r.StartedAt), completed, r.Total, r.Done, r.Failed)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecordAttempt appends an attempt row. The run must already be recorded.
func (db *DB) RecordAttempt(a *AttemptRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO attempts (run_id, wp_id, attempt, outcome, detail, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.WPID, a.Attempt, a.Outcome, a.Detail, formatTime(a.StartedAt), a.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// GetRun returns the run with the given ID, or sql.ErrNoRows.
func (db *DB) GetRun(id string) (*RunRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT id, repo, target_branch, agent, started_at, completed_at, total, done, failed
		FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns up to limit runs, newest first. A limit of 0 returns all.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, repo, target_branch, agent, started_at, completed_at, total, done, failed
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// ListAttempts returns the attempts of a run in insertion order.
func (db *DB) ListAttempts(runID string) ([]AttemptRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT run_id, wp_id, attempt, outcome, detail, started_at, duration_ms
		FROM attempts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []AttemptRecord
	for rows.Next() {
		var a AttemptRecord
		var detail sql.NullString
		var started string
		var durationMs int64
		if err := rows.Scan(&a.RunID, &a.WPID, &a.Attempt, &a.Outcome, &detail, &started, &durationMs); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Detail = detail.String
		if a.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse attempt start: %w", err)
		}
		a.Duration = time.Duration(durationMs) * time.Millisecond
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// PurgeOlderThan deletes runs started before now minus olderThan, along
// with their attempts. It returns the number of runs deleted.
func (db *DB) PurgeOlderThan(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var r RunRecord
	var started string
	var completed sql.NullString
	if err := row.Scan(&r.ID, &r.Repo, &r.TargetBranch, &r.Agent, &started, &completed, &r.Total, &r.Done, &r.Failed); err != nil {
		return nil, err
	}
	t, err := parseTime(started)
	if err != nil {
		return nil, fmt.Errorf("parse run start: %w", err)
	}
	r.StartedAt = t
	r.CompletedAt = parseNullableTime(completed)
	return &r, nil
}
