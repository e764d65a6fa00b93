package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/graph"
	"github.com/dante-alpha-assistant/swarm-code/internal/state"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

var (
	statusWatch   bool
	statusHistory int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the current run",
	Long: `Display the saved state of the current or last run.

Shows every work package with its wave, status, attempts and last error.

With --watch, the table is redrawn whenever the state file changes.
With --history N, the last N runs recorded in .swarm-code/history.db are
listed instead.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Redraw when the run state changes")
	statusCmd.Flags().IntVar(&statusHistory, "history", 0, "List the last N recorded runs")
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyles = map[models.Status]lipgloss.Style{
		models.StatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		models.StatusRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		models.StatusDone:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		models.StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// statusColumn is the column rendered with the per-status color.
const statusColumn = 3

func runStatus(cmd *cobra.Command, args []string) error {
	repo, err := repoRoot()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if statusHistory > 0 {
		return showHistory(out, repo, statusHistory)
	}

	tracker := state.NewTracker(repo)
	if !statusWatch {
		fmt.Fprint(out, renderStatus(tracker.Load(), time.Now()))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return watchStatus(ctx, out, tracker)
}

// renderStatus formats a run snapshot as a header and a table.
func renderStatus(s *models.RunState, now time.Time) string {
	if s == nil {
		return "No run state found. Start one with 'swarm run --plan <file>'.\n"
	}

	waves, err := graph.AssignWaves(s.WorkPackages)
	if err != nil {
		waves = map[string]int{}
	}

	sum := s.Summary()
	header := titleStyle.Render("Run "+s.ID) + "\n"
	header += fmt.Sprintf("  Target: %s   Agent: %s   Max concurrent: %d\n", s.Config.Branch, s.Config.Agent, s.Config.MaxConcurrent)
	switch {
	case s.CompletedAt != nil:
		header += fmt.Sprintf("  Finished in %s\n", formatDuration(s.Duration()))
	case s.StartedAt != nil:
		header += fmt.Sprintf("  Started %s ago\n", formatDuration(now.Sub(*s.StartedAt)))
	}
	header += fmt.Sprintf("  %d done, %d running, %d pending, %d failed of %d\n",
		sum.Done, sum.Running, sum.Pending, sum.Failed, sum.Total)

	rows := make([][]string, 0, len(s.WorkPackages))
	for _, wp := range s.WorkPackages {
		wave := "-"
		if w, ok := waves[wp.ID]; ok {
			wave = strconv.Itoa(w)
		}
		rows = append(rows, []string{wp.ID, wp.Name, wave, string(wp.Status), strconv.Itoa(wp.Attempts), truncate(wp.Error, 60)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "NAME", "WAVE", "STATUS", "ATTEMPTS", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn && row >= 0 && row < len(rows) {
				if st, ok := statusStyles[models.Status(rows[row][statusColumn])]; ok {
					return st.Padding(0, 1)
				}
			}
			return cellStyle
		})

	return header + t.String() + "\n"
}

// watchStatus redraws the status whenever the state file is written.
// The directory is watched because saves replace the file by rename.
func watchStatus(ctx context.Context, out io.Writer, tracker *state.Tracker) error {
	dir := filepath.Dir(tracker.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	redraw := func() {
		fmt.Fprint(out, "\033[H\033[2J")
		fmt.Fprint(out, renderStatus(tracker.Load(), time.Now()))
	}
	redraw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != state.StateFile {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				redraw()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch state: %w", err)
		}
	}
}

// showHistory lists recorded runs, newest first.
func showHistory(out io.Writer, repo string, limit int) error {
	if _, err := os.Stat(state.HistoryPath(repo)); os.IsNotExist(err) {
		fmt.Fprintln(out, "No run history recorded yet.")
		return nil
	}
	db, err := state.OpenHistory(repo)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	fmt.Fprint(out, renderHistory(runs, time.Now()))
	return nil
}

func renderHistory(runs []state.RunRecord, now time.Time) string {
	if len(runs) == 0 {
		return "No run history recorded yet.\n"
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		duration := "running"
		if r.CompletedAt != nil {
			duration = formatDuration(r.CompletedAt.Sub(r.StartedAt))
		}
		rows = append(rows, []string{
			r.ID,
			formatDuration(now.Sub(r.StartedAt)) + " ago",
			r.Agent,
			r.TargetBranch,
			fmt.Sprintf("%d/%d", r.Done, r.Total),
			strconv.Itoa(r.Failed),
			duration,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("RUN", "STARTED", "AGENT", "TARGET", "DONE", "FAILED", "DURATION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String() + "\n"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
