// Package logging provides the structured logger shared by swarm components.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels accepted by ParseLevel.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogDir is the log directory relative to the repository root.
const LogDir = ".swarm-code/logs"

// LogFile is the name of the log file inside LogDir.
const LogFile = "swarm.log"

// Logger is a JSON slog logger backed by an optional log file.
// It is safe for concurrent use.
type Logger struct {
	*slog.Logger
	closer *fileCloser
}

type fileCloser struct {
	once sync.Once
	file *os.File
	err  error
}

func (c *fileCloser) close() error {
	if c == nil || c.file == nil {
		return nil
	}
	c.once.Do(func() { c.err = c.file.Close() })
	return c.err
}

// New creates a logger appending JSON lines to path. An empty path logs only
// to mirror. A nil mirror logs only to the file.
func New(path, level string, mirror io.Writer) (*Logger, error) {
	var writers []io.Writer
	var closer *fileCloser

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = &fileCloser{file: f}
	}
	if mirror != nil {
		writers = append(writers, mirror)
	}
	if len(writers) == 0 {
		return Nop(), nil
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return &Logger{Logger: slog.New(handler), closer: closer}, nil
}

// NewForRepo creates a logger in the repository's log directory. It falls
// back to a no-op logger if the file cannot be opened.
func NewForRepo(repoPath, level string, mirror io.Writer) *Logger {
	l, err := New(filepath.Join(repoPath, LogDir, LogFile), level, mirror)
	if err != nil {
		return Nop()
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn, "WARNING":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{Logger: l.Logger.With(args...), closer: l.closer}
}

// WithRun tags entries with a run ID.
func (l *Logger) WithRun(runID string) *Logger {
	return l.With("run_id", runID)
}

// WithWP tags entries with a work package ID.
func (l *Logger) WithWP(wpID string) *Logger {
	return l.With("wp_id", wpID)
}

// WithComponent tags entries with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// Debugf logs a formatted DEBUG message. It matches the printf-style hooks
// some components accept.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Close closes the underlying log file. Child loggers share the file, so
// closing any of them closes it for all.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.closer.close()
}
