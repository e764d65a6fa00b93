package state

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// setupTestDB creates a new migrated temporary database.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var version int
	if err := db.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestOpenHistory(t *testing.T) {
	repo := t.TempDir()
	db, err := OpenHistory(repo)
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	defer db.Close()

	if db.Path() != filepath.Join(repo, ".swarm-code", "history.db") {
		t.Errorf("Path() = %q", db.Path())
	}
}

func TestRecordRun_Upsert(t *testing.T) {
	db := setupTestDB(t)
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	rec := &RunRecord{ID: "run-1", Repo: "/repo", TargetBranch: "main", Agent: "codex", StartedAt: start, Total: 3}
	if err := db.RecordRun(rec); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	end := start.Add(2 * time.Minute)
	rec.CompletedAt = &end
	rec.Done, rec.Failed = 2, 1
	if err := db.RecordRun(rec); err != nil {
		t.Fatalf("RecordRun update failed: %v", err)
	}

	got, err := db.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if !got.StartedAt.Equal(start) || got.CompletedAt == nil || !got.CompletedAt.Equal(end) {
		t.Errorf("times = %v / %v", got.StartedAt, got.CompletedAt)
	}
	if got.Done != 2 || got.Failed != 1 || got.Total != 3 || got.Agent != "codex" {
		t.Errorf("GetRun() = %+v", got)
	}

	if _, err := db.GetRun("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetRun(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	// Sub-second offsets check the stored timestamps sort correctly.
	offsets := []time.Duration{0, 1500 * time.Millisecond, time.Second}
	for i, off := range offsets {
		rec := &RunRecord{ID: []string{"a", "b", "c"}[i], Repo: "/r", TargetBranch: "main", Agent: "claude", StartedAt: base.Add(off)}
		if err := db.RecordRun(rec); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "c" || ids[2] != "a" {
		t.Errorf("ListRuns order = %v, want [b c a]", ids)
	}

	limited, err := db.ListRuns(1)
	if err != nil || len(limited) != 1 {
		t.Errorf("ListRuns(1) = %d rows, %v", len(limited), err)
	}
}

func TestRecordAttempt(t *testing.T) {
	db := setupTestDB(t)
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	if err := db.RecordAttempt(&AttemptRecord{RunID: "nope", WPID: "wp-1", Attempt: 1, Outcome: OutcomeDone, StartedAt: start}); err == nil {
		t.Error("RecordAttempt for unknown run should violate the foreign key")
	}

	if err := db.RecordRun(&RunRecord{ID: "run-1", Repo: "/r", TargetBranch: "main", Agent: "codex", StartedAt: start}); err != nil {
		t.Fatal(err)
	}
	attempts := []*AttemptRecord{
		{RunID: "run-1", WPID: "wp-1", Attempt: 1, Outcome: OutcomeConflict, Detail: "Merge conflicts: a.go", StartedAt: start, Duration: 1500 * time.Millisecond},
		{RunID: "run-1", WPID: "wp-1", Attempt: 2, Outcome: OutcomeDone, StartedAt: start.Add(time.Minute), Duration: time.Second},
	}
	for _, a := range attempts {
		if err := db.RecordAttempt(a); err != nil {
			t.Fatalf("RecordAttempt failed: %v", err)
		}
	}

	got, err := db.ListAttempts("run-1")
	if err != nil {
		t.Fatalf("ListAttempts failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListAttempts returned %d rows", len(got))
	}
	if got[0].Outcome != OutcomeConflict || got[0].Detail != "Merge conflicts: a.go" || got[0].Duration != 1500*time.Millisecond {
		t.Errorf("first attempt = %+v", got[0])
	}
	if got[1].Attempt != 2 || got[1].Detail != "" {
		t.Errorf("second attempt = %+v", got[1])
	}
}

func TestPurgeOlderThan_CascadesAttempts(t *testing.T) {
	db := setupTestDB(t)
	old := time.Now().Add(-60 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)

	for id, start := range map[string]time.Time{"old": old, "recent": recent} {
		if err := db.RecordRun(&RunRecord{ID: id, Repo: "/r", TargetBranch: "main", Agent: "codex", StartedAt: start}); err != nil {
			t.Fatal(err)
		}
		if err := db.RecordAttempt(&AttemptRecord{RunID: id, WPID: "wp-1", Attempt: 1, Outcome: OutcomeDone, StartedAt: start}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := db.PurgeOlderThan(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d runs, want 1", n)
	}
	if a, _ := db.ListAttempts("old"); len(a) != 0 {
		t.Errorf("attempts of purged run remain: %v", a)
	}
	if a, _ := db.ListAttempts("recent"); len(a) != 1 {
		t.Errorf("attempts of kept run = %v", a)
	}
}

func TestRunRecordFromState(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s := &models.RunState{
		ID:     "run-9",
		Config: models.RunConfig{Repo: "/repo", Branch: "dev", Agent: models.AgentClaude},
		WorkPackages: []*models.WorkPackage{
			{ID: "a", Status: models.StatusDone},
			{ID: "b", Status: models.StatusFailed},
			{ID: "c", Status: models.StatusPending},
		},
		StartedAt: &start,
	}

	rec := RunRecordFromState(s)
	if rec.ID != "run-9" || rec.TargetBranch != "dev" || rec.Agent != "claude" {
		t.Errorf("RunRecordFromState() = %+v", rec)
	}
	if rec.Total != 3 || rec.Done != 1 || rec.Failed != 1 || !rec.StartedAt.Equal(start) {
		t.Errorf("counts/start = %+v", rec)
	}
}
