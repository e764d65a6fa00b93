package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/state"
	"github.com/dante-alpha-assistant/swarm-code/internal/worktree"
)

var (
	cleanupForce   bool
	cleanupDryRun  bool
	cleanupState   bool
	cleanupHistory time.Duration
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove leftover worktrees and branches",
	Long: `Clean up worktrees and branches left behind by interrupted runs.

This command:
  - Lists every worktree on a swarm/ branch
  - Removes those worktrees and deletes their branches
  - Runs git worktree prune

With --state, the saved run state is removed as well, so the next
'swarm run --resume' has nothing to resume.
With --history, recorded runs older than the given age are purged.

Examples:
  swarm cleanup                 # Interactive cleanup with confirmation
  swarm cleanup --force         # Skip confirmation prompt
  swarm cleanup --dry-run       # Show what would be removed
  swarm cleanup --history 720h  # Also purge runs older than 30 days`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without removing")
	cleanupCmd.Flags().BoolVar(&cleanupState, "state", false, "Also remove the saved run state")
	cleanupCmd.Flags().DurationVar(&cleanupHistory, "history", 0, "Purge recorded runs older than this age")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	repo, err := repoRoot()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(repo)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	manager := worktree.New(repo, worktree.Options{BaseDir: cfg.WorktreeBase})
	if err := cleanupWorktrees(ctx, out, cmd.InOrStdin(), manager); err != nil {
		return err
	}

	if cleanupState {
		if err := cleanupRunState(out, repo); err != nil {
			return err
		}
	}
	if cleanupHistory > 0 {
		if err := purgeHistory(out, repo, cleanupHistory); err != nil {
			return err
		}
	}
	return nil
}

// staleLister is the part of worktree.Manager that cleanup needs.
type staleLister interface {
	ListStale(ctx context.Context) ([]worktree.Info, error)
	CleanupAll(ctx context.Context) ([]worktree.Info, error)
}

func cleanupWorktrees(ctx context.Context, out io.Writer, in io.Reader, m staleLister) error {
	stale, err := m.ListStale(ctx)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}
	if len(stale) == 0 {
		fmt.Fprintln(out, "No leftover worktrees found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d leftover worktree(s):\n", len(stale))
	for _, wt := range stale {
		fmt.Fprintf(out, "  - %s (branch: %s)\n", wt.Path, wt.Branch)
	}
	fmt.Fprintln(out)

	if cleanupDryRun {
		fmt.Fprintln(out, "Dry run mode - no worktrees were removed.")
		return nil
	}
	if !cleanupForce && !confirm(out, in, "Remove these worktrees?") {
		fmt.Fprintln(out, "Worktree cleanup cancelled.")
		return nil
	}

	removed, err := m.CleanupAll(ctx)
	if err != nil {
		return fmt.Errorf("cleanup worktrees: %w", err)
	}
	fmt.Fprintf(out, "Removed %d worktree(s).\n", len(removed))
	return nil
}

func cleanupRunState(out io.Writer, repo string) error {
	path := state.StatePath(repo)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "No saved run state.")
		return nil
	}
	if cleanupDryRun {
		fmt.Fprintf(out, "Dry run: would remove %s.\n", path)
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove run state: %w", err)
	}
	fmt.Fprintf(out, "Removed %s.\n", path)
	return nil
}

func purgeHistory(out io.Writer, repo string, maxAge time.Duration) error {
	if _, err := os.Stat(state.HistoryPath(repo)); os.IsNotExist(err) {
		fmt.Fprintln(out, "No run history found - nothing to purge.")
		return nil
	}
	db, err := state.OpenHistory(repo)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	if cleanupDryRun {
		runs, err := db.ListRuns(0)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		cutoff := time.Now().Add(-maxAge)
		count := 0
		for _, r := range runs {
			if r.StartedAt.Before(cutoff) {
				count++
			}
		}
		fmt.Fprintf(out, "Dry run: would purge %d run(s) older than %s.\n", count, formatDuration(maxAge))
		return nil
	}

	purged, err := db.PurgeOlderThan(maxAge)
	if err != nil {
		return fmt.Errorf("purge history: %w", err)
	}
	if purged > 0 {
		fmt.Fprintf(out, "Purged %d run(s) older than %s.\n", purged, formatDuration(maxAge))
	} else {
		fmt.Fprintf(out, "No runs older than %s found.\n", formatDuration(maxAge))
	}
	return nil
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(out io.Writer, in io.Reader, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

