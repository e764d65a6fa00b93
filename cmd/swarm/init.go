package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/agent"
	"github.com/dante-alpha-assistant/swarm-code/internal/config"
	"github.com/dante-alpha-assistant/swarm-code/internal/git"
	"github.com/dante-alpha-assistant/swarm-code/internal/state"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

var (
	initForce         bool
	initAgent         string
	initBranch        string
	initMaxConcurrent int
	initSkipAgent     bool
	initModel         string
	initCustomCommand string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize swarm in a repository",
	Long: `Prepare a git repository for swarm runs.

This command:
  - Verifies prerequisites (git, the agent CLI)
  - Writes a .swarmrc.yaml project config
  - Creates the .swarm-code directory and ignores it in .gitignore

Examples:
  swarm init                      # Use the default agent (codex)
  swarm init --agent claude -j 2  # Claude with two concurrent agents
  swarm init --force              # Overwrite an existing .swarmrc.yaml`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing project config")
	initCmd.Flags().StringVar(&initAgent, "agent", "", "Agent: claude, codex or custom")
	initCmd.Flags().StringVar(&initBranch, "branch", "", "Target branch (default: current branch)")
	initCmd.Flags().IntVarP(&initMaxConcurrent, "max-concurrent", "j", 0, "Maximum concurrent agents")
	initCmd.Flags().StringVar(&initModel, "model", "", "Model passed to the agent")
	initCmd.Flags().StringVar(&initCustomCommand, "custom-command", "", "Command template for the custom agent ({prompt}, {workdir})")
	initCmd.Flags().BoolVar(&initSkipAgent, "skip-agent-check", false, "Skip the agent CLI availability check")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if err := checkGitInstalled(); err != nil {
		printStatus(out, "✗", "Git not found", color.FgRed)
		return err
	}
	printStatus(out, "✓", "Git found", color.FgGreen)

	repo, err := repoRoot()
	if err != nil {
		printStatus(out, "✗", "Not inside a git repository", color.FgRed)
		return err
	}
	if _, err := git.HeadCommit(repo); err != nil {
		printStatus(out, "⚠", "Repository has no commits yet (commit before running)", color.FgYellow)
	} else {
		printStatus(out, "✓", "Git repository has commits", color.FgGreen)
	}

	fmt.Fprintf(out, "\nInitializing swarm in %s...\n\n", repo)

	if existing := config.FindProjectConfig(repo); existing != "" && filepath.Dir(existing) == repo && !initForce {
		fmt.Fprintf(out, "%s already exists. Use --force to overwrite it.\n", filepath.Base(existing))
		return nil
	}

	cfg := config.Default()
	if initAgent != "" {
		cfg.Agent = initAgent
	}
	cfg.Branch = initBranch
	if cfg.Branch == "" {
		cfg.Branch = currentBranch(repo)
	}
	if initMaxConcurrent > 0 {
		cfg.MaxConcurrent = initMaxConcurrent
	}
	cfg.Model = initModel
	cfg.CustomCommand = initCustomCommand
	if models.AgentType(cfg.Agent) == models.AgentCustom && cfg.CustomCommand == "" {
		cfg.CustomCommand = "my-agent --cwd {workdir} {prompt}"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings:\n%w", err)
	}

	if !initSkipAgent && models.AgentType(cfg.Agent) != models.AgentCustom {
		a, err := agent.New(models.AgentType(cfg.Agent), agent.Options{})
		if err != nil {
			return err
		}
		if err := checkAgent(a); err != nil {
			printStatus(out, "⚠", fmt.Sprintf("%s CLI not found in PATH (install it before running)", a.Name()), color.FgYellow)
		} else {
			printStatus(out, "✓", fmt.Sprintf("%s CLI found", a.Name()), color.FgGreen)
		}
	}

	path, err := config.SaveProject(cfg, repo)
	if err != nil {
		return err
	}
	printStatus(out, "✓", "Wrote "+filepath.Base(path), color.FgGreen)

	if err := os.MkdirAll(filepath.Join(repo, state.Dir), 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", state.Dir, err)
	}
	printStatus(out, "✓", "Created "+state.Dir+" directory", color.FgGreen)

	if err := updateGitignore(repo); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	printStatus(out, "✓", "Updated .gitignore", color.FgGreen)

	fmt.Fprintf(out, "\n%s swarm initialization complete!\n\n", color.GreenString("✓"))
	fmt.Fprintln(out, "Next steps:")
	if models.AgentType(cfg.Agent) == models.AgentCustom {
		fmt.Fprintln(out, "  1. Edit custom_command in .swarmrc.yaml")
	} else {
		fmt.Fprintln(out, "  1. Write a plan of work packages (YAML or JSON)")
	}
	fmt.Fprintln(out, "  2. Check it:  swarm plan plan.yaml")
	fmt.Fprintln(out, "  3. Run it:    swarm run --plan plan.yaml")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Project details:")
	fmt.Fprintf(out, "  Agent: %s\n", cfg.Agent)
	fmt.Fprintf(out, "  Target branch: %s\n", cfg.Branch)
	fmt.Fprintf(out, "  Max concurrent: %d\n", cfg.MaxConcurrent)
	return nil
}

// printStatus prints a colored status line.
func printStatus(out io.Writer, symbol, message string, fg color.Attribute) {
	fmt.Fprintf(out, "%s %s\n", color.New(fg).Sprint(symbol), message)
}

// checkGitInstalled checks if git is installed
func checkGitInstalled() error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git not found in PATH\n\n" +
			"swarm requires git to manage worktrees and merges.\n\n" +
			"Install git with:\n" +
			"  - macOS: brew install git\n" +
			"  - Ubuntu/Debian: sudo apt-get install git\n" +
			"  - Other: https://git-scm.com/downloads")
	}
	return nil
}

// currentBranch returns the checked-out branch of repo, or "main".
func currentBranch(repo string) string {
	cmd := exec.Command("git", "branch", "--show-current")
	cmd.Dir = repo
	output, err := cmd.Output()
	if err != nil {
		return "main"
	}
	if b := strings.TrimSpace(string(output)); b != "" {
		return b
	}
	return "main"
}

// gitignoreEntries are the paths swarm keeps out of version control.
var gitignoreEntries = []string{
	state.Dir + "/",
}

// updateGitignore adds swarm entries to .gitignore if not present
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(existingContent, "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range gitignoreEntries {
		if !present[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}
	if len(existingContent) > 0 {
		newContent.WriteString("\n")
	}
	newContent.WriteString("# swarm\n")
	for _, entry := range missing {
		newContent.WriteString(entry + "\n")
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0o644)
}
