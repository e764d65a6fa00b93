package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dante-alpha-assistant/swarm-code/internal/agent"
	"github.com/dante-alpha-assistant/swarm-code/internal/graph"
	"github.com/dante-alpha-assistant/swarm-code/internal/limiter"
	"github.com/dante-alpha-assistant/swarm-code/internal/logging"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

var (
	// ErrInvalidConfig is returned by New when a required setting is missing.
	ErrInvalidConfig = errors.New("invalid orchestrator configuration")
	// ErrInvalidPlan is returned by Run before any execution when the work
	// packages are malformed, reference unknown dependencies or form a cycle.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrAlreadyRunning is returned when Run is called while a run is active.
	ErrAlreadyRunning = errors.New("orchestrator is already running")
	// ErrNothingToResume is returned by Resume for an empty snapshot.
	ErrNothingToResume = errors.New("no run to resume")
)

// Failure reasons stored on work packages.
const (
	ReasonDependencyFailed = "Dependency failed"
	ReasonCancelled        = "run cancelled"
)

// Orchestrator executes the work packages of a run.
type Orchestrator struct {
	cfg        models.RunConfig
	repoPath   string
	project    string
	agent      agent.Agent
	workspaces Workspaces
	slots      *limiter.Limiter
	opts       *orchestratorOptions
	log        *logging.Logger

	running atomic.Bool

	// mu guards state and every work package in it.
	mu    sync.Mutex
	state *models.RunState

	// persistMu orders snapshot writes and guards persistErrs.
	persistMu   sync.Mutex
	persistErrs []error
}

// New creates an orchestrator for one target repository.
func New(cfg models.RunConfig, req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	switch {
	case req.RepoPath == "":
		return nil, fmt.Errorf("%w: repository path is required", ErrInvalidConfig)
	case req.Agent == nil:
		return nil, fmt.Errorf("%w: agent is required", ErrInvalidConfig)
	case req.Workspaces == nil:
		return nil, fmt.Errorf("%w: workspaces are required", ErrInvalidConfig)
	case cfg.Branch == "":
		return nil, fmt.Errorf("%w: target branch is required", ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}

	if cfg.Repo == "" {
		cfg.Repo = req.RepoPath
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Agent == "" {
		cfg.Agent = models.AgentType(req.Agent.Name())
	}

	return &Orchestrator{
		cfg:        cfg,
		repoPath:   req.RepoPath,
		project:    filepath.Base(filepath.Clean(req.RepoPath)),
		agent:      req.Agent,
		workspaces: req.Workspaces,
		slots:      limiter.New(cfg.MaxConcurrent),
		opts:       o,
		log:        o.logger.WithComponent("orchestrator"),
	}, nil
}

// Run executes packages wave by wave and returns the final run state.
// The input slice is not modified. Work package failures are reported in
// the returned state, not as an error. A cancelled context still settles
// every wave and the state is returned together with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, packages []*models.WorkPackage) (*models.RunState, error) {
	wps := make([]*models.WorkPackage, len(packages))
	for i, wp := range packages {
		if wp != nil {
			wp = wp.Clone()
			wp.Normalize()
		}
		wps[i] = wp
	}

	g, err := buildGraph(wps)
	if err != nil {
		return nil, err
	}

	now := o.opts.now()
	st := &models.RunState{
		ID:           o.opts.newID(),
		Config:       o.cfg,
		WorkPackages: wps,
		StartedAt:    &now,
	}
	return o.execute(ctx, st, g)
}

// Resume continues a previous run. Packages already done are kept and
// skipped. Every other package starts over with a fresh retry budget.
func (o *Orchestrator) Resume(ctx context.Context, prev *models.RunState) (*models.RunState, error) {
	if prev == nil || len(prev.WorkPackages) == 0 {
		return nil, ErrNothingToResume
	}

	st := prev.Clone()
	for _, wp := range st.WorkPackages {
		if wp == nil || wp.Status == models.StatusDone {
			continue
		}
		attempts := wp.Attempts
		wp.Normalize()
		o.log.Debug("resetting work package", "wp", wp.ID, "previous_attempts", attempts)
	}

	g, err := buildGraph(st.WorkPackages)
	if err != nil {
		return nil, err
	}

	if st.ID == "" {
		st.ID = o.opts.newID()
	}
	if st.StartedAt == nil {
		now := o.opts.now()
		st.StartedAt = &now
	}
	st.CompletedAt = nil
	st.Config = o.cfg
	return o.execute(ctx, st, g)
}

// Snapshot returns a deep copy of the current run state, or nil before
// the first run.
func (o *Orchestrator) Snapshot() *models.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// PersistErrors returns the snapshot save failures of the last run.
func (o *Orchestrator) PersistErrors() []error {
	o.persistMu.Lock()
	defer o.persistMu.Unlock()
	return append([]error(nil), o.persistErrs...)
}

// MaxConcurrent returns the effective concurrency cap.
func (o *Orchestrator) MaxConcurrent() int {
	return o.slots.Capacity()
}

func buildGraph(wps []*models.WorkPackage) (*graph.DependencyGraph, error) {
	if err := models.Validate(wps); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	g := graph.New()
	if err := g.Build(wps); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return g, nil
}
