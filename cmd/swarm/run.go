package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/agent"
	"github.com/dante-alpha-assistant/swarm-code/internal/config"
	"github.com/dante-alpha-assistant/swarm-code/internal/decompose"
	"github.com/dante-alpha-assistant/swarm-code/internal/eventbus"
	"github.com/dante-alpha-assistant/swarm-code/internal/logging"
	"github.com/dante-alpha-assistant/swarm-code/internal/orchestrator"
	"github.com/dante-alpha-assistant/swarm-code/internal/state"
	"github.com/dante-alpha-assistant/swarm-code/internal/worktree"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

var (
	runPlan          string
	runResume        bool
	runAgent         string
	runModel         string
	runBranch        string
	runMaxConcurrent int
	runTimeout       time.Duration
	runMaxRetries    int
	runCustomCommand string
	runNATSURL       string
	runServeEvents   bool
	runEventsPort    int
	runVerbose       bool
	runCleanupFirst  bool
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Execute a plan of work packages",
	Long: `Execute the work packages of a plan with parallel coding agents.

The plan is a YAML or JSON list of work packages (or a document with a
workPackages key). Use --plan - to read it from standard input.

Each package runs in an isolated worktree on branch swarm/<id>/<slug>.
Packages whose dependencies failed are skipped and marked failed. A failed
package is retried up to max_retries times.

Progress is saved to .swarm-code/state.json after every change. After an
interruption, continue with --resume: packages already done are kept.

Examples:
  swarm run --plan plan.yaml
  swarm run --plan plan.json --agent claude --max-concurrent 2
  swarm run --resume
  swarm run --plan plan.yaml --serve-events   # follow with 'swarm events'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runPlan, "plan", "p", "", "Plan file (YAML or JSON), or - for stdin")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Resume the run saved in .swarm-code/state.json")
	runCmd.Flags().StringVar(&runAgent, "agent", "", "Agent: claude, codex or custom")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model passed to the agent")
	runCmd.Flags().StringVar(&runBranch, "branch", "", "Target branch to merge into")
	runCmd.Flags().IntVarP(&runMaxConcurrent, "max-concurrent", "j", 0, "Maximum concurrent agents")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Timeout for one agent attempt")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", 0, "Retries after a failed first attempt")
	runCmd.Flags().StringVar(&runCustomCommand, "custom-command", "", "Command template for the custom agent ({prompt}, {workdir})")
	runCmd.Flags().StringVar(&runNATSURL, "nats-url", "", "Publish run events to this NATS server")
	runCmd.Flags().BoolVar(&runServeEvents, "serve-events", false, "Start an embedded NATS server for 'swarm events'")
	runCmd.Flags().IntVar(&runEventsPort, "events-port", 4222, "Port of the embedded NATS server")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Mirror the JSON log to stderr")
	runCmd.Flags().BoolVar(&runCleanupFirst, "cleanup", false, "Remove worktrees left by earlier runs before starting")
}

// applyRunFlags overrides configuration values with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("agent") {
		cfg.Agent = runAgent
	}
	if flags.Changed("model") {
		cfg.Model = runModel
	}
	if flags.Changed("branch") {
		cfg.Branch = runBranch
	}
	if flags.Changed("max-concurrent") {
		cfg.MaxConcurrent = runMaxConcurrent
	}
	if flags.Changed("timeout") {
		cfg.AgentTimeout = runTimeout
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = runMaxRetries
	}
	if flags.Changed("custom-command") {
		cfg.CustomCommand = runCustomCommand
	}
	if flags.Changed("nats-url") {
		cfg.Events.NATSURL = runNATSURL
	}
}

// agentInstallHints are shown when an agent CLI is missing.
var agentInstallHints = map[models.AgentType]string{
	models.AgentClaude: "npm install -g @anthropic-ai/claude-code",
	models.AgentCodex:  "npm install -g @openai/codex",
}

// checkAgent verifies the agent can be launched on this host.
func checkAgent(a agent.Agent) error {
	if a.IsAvailable() {
		return nil
	}
	msg := fmt.Sprintf("%s CLI not found in PATH", a.Name())
	if hint, ok := agentInstallHints[models.AgentType(a.Name())]; ok {
		msg += "\n\nInstall it with:\n  " + hint
	}
	return errors.New(msg)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runPlan == "" && !runResume {
		return errors.New("a plan is required: use --plan <file> or --resume")
	}
	if runPlan != "" && runResume {
		return errors.New("--plan and --resume are mutually exclusive")
	}

	repo, err := repoRoot()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(repo)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	var mirror io.Writer
	if runVerbose {
		mirror = cmd.ErrOrStderr()
	}
	logger := logging.NewForRepo(repo, cfg.LogLevel, mirror)
	defer logger.Close()

	a, err := agent.New(models.AgentType(cfg.Agent), agent.Options{Model: cfg.Model, CustomCommand: cfg.CustomCommand})
	if err != nil {
		return err
	}
	if err := checkAgent(a); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := state.NewTracker(repo)
	var packages []*models.WorkPackage
	var previous *models.RunState
	if runResume {
		previous = tracker.Load()
		if previous == nil {
			return fmt.Errorf("no saved run in %s", tracker.Path())
		}
		if sum := previous.Summary(); sum.Done == sum.Total {
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s already finished with every package done.\n", previous.ID)
			return nil
		}
	} else {
		task := ""
		if len(args) > 0 {
			task = args[0]
		}
		plan := &decompose.PlanFile{Path: runPlan, Stdin: cmd.InOrStdin()}
		packages, err = plan.Decompose(ctx, decompose.Request{Prompt: task, RepoPath: repo})
		if err != nil {
			return err
		}
		if err := printWaves(cmd.OutOrStdout(), packages); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}

	sinks := orchestrator.MultiSink{newProgressPrinter(cmd.OutOrStdout())}

	natsURL := cfg.Events.NATSURL
	if runServeEvents {
		srv, err := eventbus.StartServer("", runEventsPort)
		if err != nil {
			return fmt.Errorf("start event server: %w", err)
		}
		defer srv.Close()
		natsURL = srv.ClientURL()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving events at %s (follow with: swarm events --nats-url %s)\n", natsURL, natsURL)
	}
	if natsURL != "" {
		pub, err := eventbus.Connect(natsURL, cfg.Events.SubjectPrefix, logger)
		if err != nil {
			logger.Warn("event publishing disabled", "url", natsURL, "error", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	opts := []orchestrator.Option{
		orchestrator.WithStore(tracker),
		orchestrator.WithEvents(sinks),
		orchestrator.WithLogger(logger),
		orchestrator.WithMaxRetries(cfg.MaxRetries),
		orchestrator.WithAgentTimeout(cfg.AgentTimeout),
		orchestrator.WithAgentEnv(cfg.ResolvedAgentEnv()),
	}
	if db, err := state.OpenHistory(repo); err != nil {
		logger.Warn("run history disabled", "error", err)
	} else {
		defer db.Close()
		opts = append(opts, orchestrator.WithHistory(db))
	}

	workspaces := worktree.New(repo, worktree.Options{BaseDir: cfg.WorktreeBase, Logger: logger})
	if runCleanupFirst {
		removed, err := workspaces.CleanupAll(ctx)
		if err != nil {
			logger.Warn("cleanup of leftover worktrees incomplete", "error", err)
		}
		if len(removed) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d leftover worktree(s).\n", len(removed))
		}
	}
	orch, err := orchestrator.New(cfg.RunConfig(repo), orchestrator.RequiredConfig{
		RepoPath:   repo,
		Agent:      a,
		Workspaces: workspaces,
	}, opts...)
	if err != nil {
		return err
	}

	var final *models.RunState
	if previous != nil {
		final, err = orch.Resume(ctx, previous)
	} else {
		final, err = orch.Run(ctx, packages)
	}
	if final != nil {
		printSummary(cmd.OutOrStdout(), final)
	}
	if n := len(orch.PersistErrors()); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d state saves failed, see %s\n", n, logging.LogDir)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return errors.New("run interrupted; continue with 'swarm run --resume'")
	case err != nil:
		return err
	}
	if sum := final.Summary(); sum.Failed > 0 {
		return fmt.Errorf("%d of %d work packages failed", sum.Failed, sum.Total)
	}
	return nil
}

