package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/eventbus"
	"github.com/dante-alpha-assistant/swarm-code/internal/orchestrator"
)

// defaultEventsURL is the embedded server address of 'swarm run --serve-events'.
const defaultEventsURL = "nats://127.0.0.1:4222"

var (
	eventsNATSURL string
	eventsRunID   string
	eventsFollow  bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow run progress from a NATS server",
	Long: `Print the progress events of runs published to NATS.

Events are published by 'swarm run' when events.nats_url is configured or
when it serves its own embedded server with --serve-events.

By default the command exits once a run reports that every wave is done.
Use --follow to keep listening for later runs.

Examples:
  swarm events                              # Local embedded server
  swarm events --nats-url nats://host:4222  # Remote server
  swarm events --run 7f1c... --follow`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsNATSURL, "nats-url", "", "NATS server URL (default: events.nats_url or "+defaultEventsURL+")")
	eventsCmd.Flags().StringVar(&eventsRunID, "run", "", "Only show events of this run")
	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "Keep listening after a run finishes")
}

func runEvents(cmd *cobra.Command, args []string) error {
	prefix := eventbus.DefaultPrefix
	url := eventsNATSURL
	if dir, err := workDir(); err == nil {
		if cfg, err := loadConfig(dir); err == nil {
			if cfg.Events.SubjectPrefix != "" {
				prefix = cfg.Events.SubjectPrefix
			}
			if url == "" {
				url = cfg.Events.NATSURL
			}
		}
	}
	if url == "" {
		url = defaultEventsURL
	}

	subject := eventbus.AllRunsSubject(prefix)
	if eventsRunID != "" {
		subject = eventbus.RunSubject(prefix, eventsRunID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s at %s\n", subject, url)
	printer := newProgressPrinter(cmd.OutOrStdout())
	return eventbus.Follow(ctx, url, subject, func(e orchestrator.Event) {
		printer.Emit(e)
		if e.Type == orchestrator.EventAllDone && !eventsFollow {
			cancel()
		}
	})
}
