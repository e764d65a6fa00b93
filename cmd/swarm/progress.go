package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/dante-alpha-assistant/swarm-code/internal/orchestrator"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

var (
	waveColor   = color.New(color.FgCyan, color.Bold)
	startColor  = color.New(color.FgYellow)
	doneColor   = color.New(color.FgGreen)
	failedColor = color.New(color.FgRed)
	dimColor    = color.New(color.Faint)
)

// progressPrinter writes one line per run event.
type progressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

// Emit implements orchestrator.EventSink.
func (p *progressPrinter) Emit(e orchestrator.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := dimColor.Sprint(e.Timestamp.Format("15:04:05"))
	switch e.Type {
	case orchestrator.EventWaveStart:
		fmt.Fprintf(p.out, "%s %s\n", ts, waveColor.Sprint("▶ "+e.Message))
	case orchestrator.EventWPStart:
		fmt.Fprintf(p.out, "%s   %s %s\n", ts, startColor.Sprint("●"), e.Message)
	case orchestrator.EventWPDone:
		fmt.Fprintf(p.out, "%s   %s %s\n", ts, doneColor.Sprint("✓"), e.Message)
	case orchestrator.EventWPFailed:
		msg := e.Message
		if e.WP != nil && e.WP.Error != "" {
			msg += dimColor.Sprintf(" (%s)", e.WP.Error)
		}
		fmt.Fprintf(p.out, "%s   %s %s\n", ts, failedColor.Sprint("✗"), msg)
	case orchestrator.EventWaveDone:
		fmt.Fprintf(p.out, "%s %s\n", ts, dimColor.Sprint(e.Message))
	case orchestrator.EventAllDone:
		fmt.Fprintf(p.out, "%s %s\n", ts, waveColor.Sprint(e.Message))
	default:
		fmt.Fprintf(p.out, "%s %s\n", ts, e.Message)
	}
}

// printSummary writes the per-package outcome of a run.
func printSummary(out io.Writer, s *models.RunState) {
	sum := s.Summary()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Run %s finished in %s\n", s.ID, formatDuration(s.Duration()))
	for _, wp := range s.WorkPackages {
		switch wp.Status {
		case models.StatusDone:
			fmt.Fprintf(out, "  %s %s %s\n", doneColor.Sprint("✓"), wp.ID, wp.Name)
		case models.StatusFailed:
			fmt.Fprintf(out, "  %s %s %s: %s\n", failedColor.Sprint("✗"), wp.ID, wp.Name, wp.Error)
		default:
			fmt.Fprintf(out, "  %s %s %s (%s)\n", dimColor.Sprint("-"), wp.ID, wp.Name, wp.Status)
		}
	}
	line := fmt.Sprintf("%d done, %d failed, %d total", sum.Done, sum.Failed, sum.Total)
	if sum.Failed > 0 {
		fmt.Fprintln(out, failedColor.Sprint(line))
	} else {
		fmt.Fprintln(out, doneColor.Sprint(line))
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s > 0 {
			return fmt.Sprintf("%dm%ds", m, s)
		}
		return fmt.Sprintf("%dm", m)
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
