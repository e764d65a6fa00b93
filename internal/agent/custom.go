package agent

import (
	"context"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/dante-alpha-assistant/swarm-code/internal/exec"
)

// Template placeholders recognized by CustomAgent.
const (
	PlaceholderPrompt  = "{prompt}"
	PlaceholderWorkdir = "{workdir}"
)

// CustomAgent runs a user-supplied command line through sh -c.
type CustomAgent struct {
	runner   exec.CommandRunner
	template string
}

// NewCustomAgent creates an agent from a command template.
func NewCustomAgent(runner exec.CommandRunner, template string) *CustomAgent {
	return &CustomAgent{runner: runner, template: template}
}

// Name returns "custom".
func (a *CustomAgent) Name() string { return "custom" }

// Render substitutes every placeholder occurrence with its shell-quoted value.
func (a *CustomAgent) Render(opts SpawnOptions) string {
	r := strings.NewReplacer(
		PlaceholderPrompt, shellquote.Join(opts.Prompt),
		PlaceholderWorkdir, shellquote.Join(opts.Workdir),
	)
	return r.Replace(a.template)
}

// Spawn renders the template and runs it with sh.
func (a *CustomAgent) Spawn(ctx context.Context, opts SpawnOptions) Result {
	return runProcess(ctx, a.runner, "sh", []string{"-c", a.Render(opts)}, opts)
}

// IsAvailable always returns true; the template is only checked when run.
func (a *CustomAgent) IsAvailable() bool { return true }

var _ Agent = (*CustomAgent)(nil)
