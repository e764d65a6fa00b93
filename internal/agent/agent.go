// Package agent runs coding agent CLIs against a working directory.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dante-alpha-assistant/swarm-code/internal/exec"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// DefaultTimeout bounds an attempt when SpawnOptions.Timeout is zero.
const DefaultTimeout = 30 * time.Minute

// KillGrace is the delay between SIGTERM and SIGKILL for a timed-out agent.
const KillGrace = 5 * time.Second

var (
	// ErrUnknownAgent is returned by New for an unrecognized agent type.
	ErrUnknownAgent = errors.New("unknown agent type")
	// ErrMissingCommand is returned by New when the custom agent has no template.
	ErrMissingCommand = errors.New("custom agent requires a command template")
)

// SpawnOptions configures a single agent invocation.
type SpawnOptions struct {
	// Workdir is the directory the agent works in.
	Workdir string
	// Prompt is the instruction text.
	Prompt string
	// Timeout bounds the invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	// Env entries are added to the inherited environment.
	Env map[string]string
}

// Result is the outcome of an agent invocation.
type Result struct {
	// Success is true iff the agent exited with code 0.
	Success bool
	// ExitCode is the process exit code.
	ExitCode int
	// Output is the combined stdout and stderr of the agent.
	Output string
	// Duration is the wall-clock time of the invocation.
	Duration time.Duration
	// TimedOut is set when the agent was stopped by the timeout.
	TimedOut bool
}

// Agent is a coding tool that can be pointed at a directory with a prompt.
type Agent interface {
	// Name returns the agent's identifier.
	Name() string
	// Spawn runs the agent to completion. Launch failures are reported as an
	// unsuccessful Result rather than an error.
	Spawn(ctx context.Context, opts SpawnOptions) Result
	// IsAvailable reports whether the agent can be launched on this host.
	IsAvailable() bool
}

// Options configures agent construction.
type Options struct {
	// Model is forwarded to agents that accept one.
	Model string
	// CustomCommand is the template for the custom agent.
	CustomCommand string
	// Runner executes processes. Defaults to exec.NewRunner().
	Runner exec.CommandRunner
}

// New returns the agent for the given type.
func New(agentType models.AgentType, opts Options) (Agent, error) {
	runner := opts.Runner
	if runner == nil {
		runner = exec.NewRunner()
	}

	switch agentType {
	case models.AgentClaude:
		return NewClaudeAgent(runner, opts.Model), nil
	case models.AgentCodex:
		return NewCodexAgent(runner, opts.Model), nil
	case models.AgentCustom:
		if opts.CustomCommand == "" {
			return nil, ErrMissingCommand
		}
		return NewCustomAgent(runner, opts.CustomCommand), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, agentType)
	}
}

// runProcess is the shared process primitive behind every agent variant.
func runProcess(ctx context.Context, runner exec.CommandRunner, name string, args []string, opts SpawnOptions) Result {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	res := runner.Run(ctx, exec.Command{
		Name:      name,
		Args:      args,
		Dir:       opts.Workdir,
		Env:       opts.Env,
		Timeout:   timeout,
		KillGrace: KillGrace,
	})

	return Result{
		Success:  res.Success(),
		ExitCode: res.ExitCode,
		Output:   res.Output,
		Duration: res.Duration,
		TimedOut: res.TimedOut,
	}
}
