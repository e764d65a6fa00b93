package orchestrator

import (
	"context"
	"time"

	"github.com/dante-alpha-assistant/swarm-code/internal/agent"
	"github.com/dante-alpha-assistant/swarm-code/internal/logging"
	"github.com/dante-alpha-assistant/swarm-code/internal/state"
	"github.com/dante-alpha-assistant/swarm-code/internal/worktree"
)

// DefaultMaxRetries is the number of retries after a failed first attempt.
const DefaultMaxRetries = 2

// Workspaces provides isolated working copies for work packages.
// *worktree.Manager implements it.
type Workspaces interface {
	Create(ctx context.Context, project, wpID, name string) (*worktree.Info, error)
	Merge(ctx context.Context, wpID, name, target string) (*worktree.MergeResult, error)
	Remove(ctx context.Context, project, wpID, name string) error
}

var _ Workspaces = (*worktree.Manager)(nil)

// RequiredConfig contains the minimal required configuration for an Orchestrator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// RepoPath is the path to the git repository.
	RepoPath string
	// Agent runs each attempt.
	Agent agent.Agent
	// Workspaces creates, merges and removes worktrees.
	Workspaces Workspaces
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	maxRetries   int
	agentTimeout time.Duration
	agentEnv     map[string]string
	store        state.SnapshotStore
	history      state.HistoryStore
	events       EventSink
	logger       *logging.Logger
	now          func() time.Time
	newID        func() string
}

func defaultOptions() *orchestratorOptions {
	return &orchestratorOptions{
		maxRetries: DefaultMaxRetries,
		events:     NopSink{},
		logger:     logging.Nop(),
		now:        time.Now,
	}
}

// WithMaxRetries sets how many times a failed package is retried.
// Negative values are treated as zero.
func WithMaxRetries(n int) Option {
	return func(o *orchestratorOptions) {
		if n < 0 {
			n = 0
		}
		o.maxRetries = n
	}
}

// WithAgentTimeout bounds each agent attempt. Zero uses the agent default.
func WithAgentTimeout(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.agentTimeout = d }
}

// WithAgentEnv adds environment variables to every agent process.
func WithAgentEnv(env map[string]string) Option {
	return func(o *orchestratorOptions) { o.agentEnv = env }
}

// WithStore persists a run snapshot after every state change.
func WithStore(s state.SnapshotStore) Option {
	return func(o *orchestratorOptions) { o.store = s }
}

// WithHistory records runs and attempts.
func WithHistory(h state.HistoryStore) Option {
	return func(o *orchestratorOptions) { o.history = h }
}

// WithEvents sets the progress event sink.
func WithEvents(s EventSink) Option {
	return func(o *orchestratorOptions) {
		if s != nil {
			o.events = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *orchestratorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(o *orchestratorOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides run ID generation (mainly for testing).
func WithIDGenerator(fn func() string) Option {
	return func(o *orchestratorOptions) { o.newID = fn }
}
