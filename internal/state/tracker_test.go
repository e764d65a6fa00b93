package state

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

func sampleState() *models.RunState {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Minute)
	return &models.RunState{
		ID: "run-1",
		Config: models.RunConfig{
			Repo: "/repo", Branch: "main", Agent: models.AgentCodex, MaxConcurrent: 2,
		},
		WorkPackages: []*models.WorkPackage{
			{ID: "wp-1", Name: "A", Description: "a", Branch: "swarm/wp-1/a", Dependencies: []string{}, Status: models.StatusDone, Agent: "codex", Attempts: 1},
			{ID: "wp-2", Name: "B", Description: "b", Branch: "swarm/wp-2/b", Dependencies: []string{"wp-1"}, Status: models.StatusFailed, Error: "Agent exited 2", Attempts: 3},
		},
		StartedAt:   &start,
		CompletedAt: &end,
	}
}

func TestTracker_SaveLoadRoundTrip(t *testing.T) {
	repo := t.TempDir()
	tr := NewTracker(repo)
	assert.Equal(t, filepath.Join(repo, ".swarm-code", "state.json"), tr.Path())

	want := sampleState()
	require.NoError(t, tr.Save(want))

	got := tr.Load()
	require.NotNil(t, got)
	assert.Equal(t, want, got)
}

func TestTracker_FileFormat(t *testing.T) {
	repo := t.TempDir()
	tr := NewTracker(repo)
	require.NoError(t, tr.Save(sampleState()))

	data, err := os.ReadFile(tr.Path())
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "{\n  \"id\""), "expected 2-space indented JSON, got %q", text[:20])
	assert.True(t, strings.HasSuffix(text, "}\n"))
	assert.Less(t, strings.Index(text, `"config"`), strings.Index(text, `"workPackages"`))
	assert.Less(t, strings.Index(text, `"workPackages"`), strings.Index(text, `"startedAt"`))

	entries, err := os.ReadDir(filepath.Dir(tr.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestTracker_LoadMissingOrCorrupt(t *testing.T) {
	repo := t.TempDir()
	tr := NewTracker(repo)
	assert.Nil(t, tr.Load(), "missing file")

	require.NoError(t, os.MkdirAll(filepath.Dir(tr.Path()), 0o755))
	require.NoError(t, os.WriteFile(tr.Path(), []byte(`{"config": {`), 0o644))
	assert.Nil(t, tr.Load(), "truncated file")

	require.NoError(t, os.WriteFile(tr.Path(), []byte("not json at all"), 0o644))
	assert.Nil(t, tr.Load(), "garbage file")

	for name, body := range map[string]string{
		"null document":         `null`,
		"empty object":          `{}`,
		"null work package":     `{"workPackages":[null]}`,
		"null among valid ones": `{"id":"run-1","workPackages":[{"id":"wp-1","name":"A","description":"a","branch":"swarm/wp-1/a","status":"done"},null]}`,
	} {
		require.NoError(t, os.WriteFile(tr.Path(), []byte(body), 0o644))
		assert.Nil(t, tr.Load(), name)
	}

	require.NoError(t, os.WriteFile(tr.Path(), []byte(`{"id":"run-1","workPackages":[]}`), 0o644))
	assert.NotNil(t, tr.Load(), "run with an id but no packages")
}

func TestTracker_SaveOverwrites(t *testing.T) {
	tr := NewTracker(t.TempDir())
	s := sampleState()
	require.NoError(t, tr.Save(s))

	s.WorkPackages = s.WorkPackages[:1]
	s.CompletedAt = nil
	require.NoError(t, tr.Save(s))

	got := tr.Load()
	require.NotNil(t, got)
	assert.Len(t, got.WorkPackages, 1)
	assert.Nil(t, got.CompletedAt)
}

func TestTracker_ConcurrentSaves(t *testing.T) {
	tr := NewTracker(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := sampleState()
			s.WorkPackages[0].Attempts = n
			assert.NoError(t, tr.Save(s))
			assert.NotNil(t, tr.Load(), "reader saw a partial file")
		}(i)
	}
	wg.Wait()

	assert.NotNil(t, tr.Load())
}
