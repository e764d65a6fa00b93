package agent

import (
	"context"

	"github.com/dante-alpha-assistant/swarm-code/internal/exec"
)

// claudeAllowedTools is the tool allow-list passed to the claude CLI.
const claudeAllowedTools = "Bash,Write,Edit,Read"

// ClaudeAgent drives the claude CLI in non-interactive print mode.
type ClaudeAgent struct {
	runner exec.CommandRunner
	model  string
}

// NewClaudeAgent creates a claude agent. An empty model uses the CLI default.
func NewClaudeAgent(runner exec.CommandRunner, model string) *ClaudeAgent {
	return &ClaudeAgent{runner: runner, model: model}
}

// Name returns "claude".
func (a *ClaudeAgent) Name() string { return "claude" }

// Args returns the argument vector for a prompt.
func (a *ClaudeAgent) Args(prompt string) []string {
	args := []string{
		"-p", prompt,
		"--allowedTools", claudeAllowedTools,
		"--output-format", "text",
	}
	if a.model != "" {
		args = append(args, "--model", a.model)
	}
	return args
}

// Spawn runs claude in opts.Workdir.
func (a *ClaudeAgent) Spawn(ctx context.Context, opts SpawnOptions) Result {
	return runProcess(ctx, a.runner, "claude", a.Args(opts.Prompt), opts)
}

// IsAvailable reports whether the claude binary is on PATH.
func (a *ClaudeAgent) IsAvailable() bool {
	return a.runner.LookPath("claude")
}

var _ Agent = (*ClaudeAgent)(nil)
