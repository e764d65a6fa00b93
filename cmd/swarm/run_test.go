package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/agent"
	"github.com/dante-alpha-assistant/swarm-code/internal/config"
	"github.com/dante-alpha-assistant/swarm-code/internal/orchestrator"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

func init() {
	color.NoColor = true
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{5 * time.Minute, "5m"},
		{5*time.Minute + 3*time.Second, "5m3s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{72 * time.Hour, "3d"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

// newRunFlagsCommand binds the run flag variables to a fresh command so
// tests can parse arguments without touching runCmd.
func newRunFlagsCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().StringVar(&runAgent, "agent", "", "")
	cmd.Flags().StringVar(&runModel, "model", "", "")
	cmd.Flags().StringVar(&runBranch, "branch", "", "")
	cmd.Flags().IntVarP(&runMaxConcurrent, "max-concurrent", "j", 0, "")
	cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "")
	cmd.Flags().IntVar(&runMaxRetries, "max-retries", 0, "")
	cmd.Flags().StringVar(&runCustomCommand, "custom-command", "", "")
	cmd.Flags().StringVar(&runNATSURL, "nats-url", "", "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v) error = %v", args, err)
	}
	return cmd
}

func TestApplyRunFlags(t *testing.T) {
	t.Run("unset flags keep config values", func(t *testing.T) {
		cfg := config.Default()
		cfg.Agent = "claude"
		cfg.MaxRetries = 5
		applyRunFlags(newRunFlagsCommand(t), cfg)
		if cfg.Agent != "claude" || cfg.MaxRetries != 5 || cfg.MaxConcurrent != 4 {
			t.Errorf("config changed without flags: %+v", cfg)
		}
	})

	t.Run("set flags override", func(t *testing.T) {
		cfg := config.Default()
		cmd := newRunFlagsCommand(t,
			"--agent", "custom",
			"--custom-command", "my-agent {prompt}",
			"-j", "2",
			"--max-retries", "0",
			"--timeout", "90s",
			"--branch", "develop",
			"--nats-url", "nats://localhost:4222",
		)
		applyRunFlags(cmd, cfg)

		if cfg.Agent != "custom" || cfg.CustomCommand != "my-agent {prompt}" {
			t.Errorf("agent = %q %q", cfg.Agent, cfg.CustomCommand)
		}
		if cfg.MaxConcurrent != 2 {
			t.Errorf("MaxConcurrent = %d, want 2", cfg.MaxConcurrent)
		}
		if cfg.MaxRetries != 0 {
			t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
		}
		if cfg.AgentTimeout != 90*time.Second {
			t.Errorf("AgentTimeout = %v, want 90s", cfg.AgentTimeout)
		}
		if cfg.Branch != "develop" {
			t.Errorf("Branch = %q, want develop", cfg.Branch)
		}
		if cfg.Events.NATSURL != "nats://localhost:4222" {
			t.Errorf("NATSURL = %q", cfg.Events.NATSURL)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

type stubAgent struct {
	name      string
	available bool
}

func (a stubAgent) Name() string      { return a.name }
func (a stubAgent) IsAvailable() bool { return a.available }
func (a stubAgent) Spawn(context.Context, agent.SpawnOptions) agent.Result {
	return agent.Result{ExitCode: -1}
}

func TestCheckAgent(t *testing.T) {
	if err := checkAgent(stubAgent{name: "codex", available: true}); err != nil {
		t.Errorf("checkAgent(available) error = %v", err)
	}

	err := checkAgent(stubAgent{name: "claude"})
	if err == nil {
		t.Fatal("checkAgent(missing) error = nil")
	}
	if !strings.Contains(err.Error(), "claude CLI not found") || !strings.Contains(err.Error(), "@anthropic-ai/claude-code") {
		t.Errorf("error = %q, want install hint", err)
	}

	err = checkAgent(stubAgent{name: "custom"})
	if err == nil || strings.Contains(err.Error(), "Install it with") {
		t.Errorf("custom agent error = %v, want no install hint", err)
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	p.Emit(orchestrator.Event{Type: orchestrator.EventWaveStart, Message: "Wave 1: 2 work packages", Timestamp: ts})
	p.Emit(orchestrator.Event{Type: orchestrator.EventWPDone, Message: "wp-1 done", Timestamp: ts})
	p.Emit(orchestrator.Event{
		Type:      orchestrator.EventWPFailed,
		Message:   "wp-2 failed",
		WP:        &models.WorkPackage{ID: "wp-2", Error: "Agent exited 1"},
		Timestamp: ts,
	})

	want := "15:04:05 ▶ Wave 1: 2 work packages\n" +
		"15:04:05   ✓ wp-1 done\n" +
		"15:04:05   ✗ wp-2 failed (Agent exited 1)\n"
	if got := buf.String(); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestPrintSummary(t *testing.T) {
	start := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	s := &models.RunState{
		ID: "run-1",
		WorkPackages: []*models.WorkPackage{
			{ID: "wp-1", Name: "API", Status: models.StatusDone},
			{ID: "wp-2", Name: "UI", Status: models.StatusFailed, Error: "Dependency failed"},
		},
		StartedAt:   &start,
		CompletedAt: &end,
	}

	var buf bytes.Buffer
	printSummary(&buf, s)
	out := buf.String()

	for _, want := range []string{
		"Run run-1 finished in 1m30s",
		"✓ wp-1 API",
		"✗ wp-2 UI: Dependency failed",
		"1 done, 1 failed, 2 total",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
