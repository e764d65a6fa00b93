package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		entries = append(entries, m)
	}
	return entries
}

func TestNew_WritesJSONWithAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "swarm.log")
	l, err := New(path, "debug", nil)
	require.NoError(t, err)

	l.WithRun("run-1").WithWP("wp-2").Info("merged", "branch", "swarm/wp-2/x")
	l.Debugf("wave %d ready", 3)
	require.NoError(t, l.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "merged", entries[0]["msg"])
	assert.Equal(t, "run-1", entries[0]["run_id"])
	assert.Equal(t, "wp-2", entries[0]["wp_id"])
	assert.Equal(t, "swarm/wp-2/x", entries[0]["branch"])
	assert.Equal(t, "wave 3 ready", entries[1]["msg"])
}

func TestNew_LevelFiltersAndMirror(t *testing.T) {
	var mirror bytes.Buffer
	l, err := New("", "warn", &mirror)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, mirror.String(), "hidden")
	assert.Contains(t, mirror.String(), "shown")
	assert.NoError(t, l.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{" warning ", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestNewForRepo_UsesLogDir(t *testing.T) {
	repo := t.TempDir()
	l := NewForRepo(repo, "info", nil)
	l.Info("hello")
	require.NoError(t, l.Close())

	_, err := os.Stat(filepath.Join(repo, LogDir, LogFile))
	assert.NoError(t, err)
}

func TestNop_IsSafe(t *testing.T) {
	l := Nop()
	l.WithWP("x").Error("nothing")
	assert.NoError(t, l.Close())

	var nilLogger *Logger
	assert.NoError(t, nilLogger.Close())
}
