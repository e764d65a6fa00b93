// Package exec runs external processes with a timeout and graceful shutdown.
package exec

import (
	"context"
	"time"
)

// Command describes a process to run.
type Command struct {
	// Name is the executable, resolved through PATH.
	Name string
	// Args are passed to the executable verbatim.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env entries are appended to the parent environment.
	Env map[string]string
	// Timeout bounds the run. Zero means no timeout beyond ctx.
	Timeout time.Duration
	// KillGrace is how long to wait after SIGTERM before SIGKILL.
	KillGrace time.Duration
}

// Result is the outcome of a process run. It is always returned, even when
// the process could not be started.
type Result struct {
	// ExitCode is the process exit code. A process that could not start or
	// was killed by a signal reports 1.
	ExitCode int
	// Output is stdout and stderr interleaved in arrival order.
	Output string
	// Duration is the wall-clock time of the run.
	Duration time.Duration
	// TimedOut is set when the run was stopped by Timeout.
	TimedOut bool
	// Cancelled is set when the run was stopped because ctx ended.
	Cancelled bool
	// StartErr holds the launch error, if any.
	StartErr error
}

// Success returns true when the process exited with code 0.
func (r Result) Success() bool {
	return r.ExitCode == 0 && r.StartErr == nil
}

// CommandRunner runs external commands. The interface allows tests to
// substitute a fake.
type CommandRunner interface {
	// Run executes cmd and blocks until it exits or is stopped.
	Run(ctx context.Context, cmd Command) Result

	// LookPath reports whether the executable can be found on PATH.
	LookPath(name string) bool
}
