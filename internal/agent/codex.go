package agent

import (
	"context"

	"github.com/dante-alpha-assistant/swarm-code/internal/exec"
)

// CodexAgent drives `codex exec` in full-auto mode.
type CodexAgent struct {
	runner exec.CommandRunner
	model  string
}

// NewCodexAgent creates a codex agent. An empty model uses the CLI default.
func NewCodexAgent(runner exec.CommandRunner, model string) *CodexAgent {
	return &CodexAgent{runner: runner, model: model}
}

// Name returns "codex".
func (a *CodexAgent) Name() string { return "codex" }

// Args returns the argument vector for a prompt.
func (a *CodexAgent) Args(prompt string) []string {
	args := []string{"exec", "--full-auto"}
	if a.model != "" {
		args = append(args, "-m", a.model)
	}
	return append(args, prompt)
}

// Spawn runs codex in opts.Workdir.
func (a *CodexAgent) Spawn(ctx context.Context, opts SpawnOptions) Result {
	return runProcess(ctx, a.runner, "codex", a.Args(opts.Prompt), opts)
}

// IsAvailable reports whether the codex binary is on PATH.
func (a *CodexAgent) IsAvailable() bool {
	return a.runner.LookPath("codex")
}

var _ Agent = (*CodexAgent)(nil)
