// Package state persists run progress: a JSON snapshot of the current run
// and a SQLite history of past runs and attempts.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// Dir is the state directory relative to the repository root.
const Dir = ".swarm-code"

// StateFile is the run snapshot file name inside Dir.
const StateFile = "state.json"

// StatePath returns the snapshot path for a repository.
func StatePath(repoPath string) string {
	return filepath.Join(repoPath, Dir, StateFile)
}

// Tracker saves and loads the run snapshot. Saves are serialized and
// atomic: a reader sees either the previous or the new snapshot, never a
// partial file.
type Tracker struct {
	path string
	mu   sync.Mutex
}

// NewTracker creates a tracker for the repository at repoPath.
func NewTracker(repoPath string) *Tracker {
	return &Tracker{path: StatePath(repoPath)}
}

// Path returns the snapshot file path.
func (t *Tracker) Path() string {
	return t.path
}

// Save writes the state as indented JSON, replacing any previous snapshot.
func (t *Tracker) Save(s *models.RunState) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Load returns the saved state, or nil if none exists, it cannot be parsed,
// it is empty or it holds a null work package.
func (t *Tracker) Load() *models.RunState {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil
	}
	var s models.RunState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if s.ID == "" && len(s.WorkPackages) == 0 {
		return nil
	}
	for _, wp := range s.WorkPackages {
		if wp == nil {
			return nil
		}
	}
	return &s
}
