package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dante-alpha-assistant/swarm-code/internal/agent"
	"github.com/dante-alpha-assistant/swarm-code/internal/graph"
	"github.com/dante-alpha-assistant/swarm-code/internal/state"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// outputTailLen bounds the agent output copied into the log on failure.
const outputTailLen = 2000

// attemptOutcome is the result of a single attempt.
type attemptOutcome struct {
	outcome string
	reason  string
}

func (a attemptOutcome) ok() bool { return a.outcome == state.OutcomeDone }

func (o *Orchestrator) execute(ctx context.Context, st *models.RunState, g *graph.DependencyGraph) (*models.RunState, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	o.mu.Lock()
	o.state = st
	o.mu.Unlock()

	o.persistMu.Lock()
	o.persistErrs = nil
	o.persistMu.Unlock()

	log := o.log.WithRun(st.ID)
	byID := make(map[string]*models.WorkPackage, len(st.WorkPackages))
	for _, wp := range st.WorkPackages {
		byID[wp.ID] = wp
	}

	levels := g.Levels()
	log.Info("run started", "packages", len(st.WorkPackages), "waves", len(levels),
		"agent", o.agent.Name(), "max_concurrent", o.slots.Capacity(), "target", o.cfg.Branch)
	o.recordRun()
	o.persist()

	for i, ids := range levels {
		wave := i + 1
		o.emit(Event{Type: EventWaveStart, Wave: wave, Message: fmt.Sprintf("Wave %d: %d work packages", wave, len(ids))})

		// Package failures are recorded on the package; the group never
		// short-circuits.
		var eg errgroup.Group
		for _, id := range ids {
			wp := byID[id]
			eg.Go(func() error {
				o.runPackage(ctx, wave, wp, byID)
				return nil
			})
		}
		_ = eg.Wait()

		o.emit(Event{Type: EventWaveDone, Wave: wave, Message: fmt.Sprintf("Wave %d complete", wave)})
		o.persist()
	}

	o.mu.Lock()
	now := o.opts.now()
	st.CompletedAt = &now
	sum := st.Summary()
	o.mu.Unlock()

	o.emit(Event{Type: EventAllDone, Message: "All waves complete"})
	o.persist()
	o.recordRun()
	log.Info("run complete", "done", sum.Done, "failed", sum.Failed, "total", sum.Total)

	final := o.Snapshot()
	if err := ctx.Err(); err != nil {
		return final, err
	}
	return final, nil
}

// runPackage drives one work package to a terminal status.
func (o *Orchestrator) runPackage(ctx context.Context, wave int, wp *models.WorkPackage, byID map[string]*models.WorkPackage) {
	log := o.log.WithRun(o.runID()).WithWP(wp.ID)

	o.mu.Lock()
	if wp.Status == models.StatusDone {
		o.mu.Unlock()
		log.Info("already done, skipping")
		return
	}
	failedDep := ""
	for _, dep := range wp.Dependencies {
		if d := byID[dep]; d != nil && d.Status == models.StatusFailed {
			failedDep = dep
			break
		}
	}
	if failedDep != "" {
		wp.Status = models.StatusFailed
		wp.Error = ReasonDependencyFailed
		snap := wp.Clone()
		o.mu.Unlock()

		log.Warn("dependency failed, not running", "dependency", failedDep)
		o.emit(Event{Type: EventWPFailed, Wave: wave, WP: snap, Message: fmt.Sprintf("WP %s: dependency %s failed", wp.ID, failedDep)})
		o.persist()
		return
	}
	o.mu.Unlock()

	maxAttempts := o.opts.maxRetries + 1
	for n := 1; n <= maxAttempts; n++ {
		res, started := o.attempt(ctx, wave, wp, n)
		if res.ok() {
			o.mu.Lock()
			wp.Status = models.StatusDone
			wp.Error = ""
			snap := wp.Clone()
			o.mu.Unlock()

			log.Info("work package done", "attempt", n)
			o.emit(Event{Type: EventWPDone, Wave: wave, WP: snap, Message: fmt.Sprintf("WP %s: done", wp.ID)})
			o.persist()
			return
		}

		o.mu.Lock()
		wp.Error = res.reason
		o.mu.Unlock()
		log.Warn("attempt failed", "attempt", n, "outcome", res.outcome, "reason", res.reason)

		if !started || res.outcome == state.OutcomeCancelled {
			break
		}
	}

	o.mu.Lock()
	wp.Status = models.StatusFailed
	attempts := wp.Attempts
	snap := wp.Clone()
	o.mu.Unlock()

	o.emit(Event{Type: EventWPFailed, Wave: wave, WP: snap, Message: fmt.Sprintf("WP %s: failed after %d attempts", wp.ID, attempts)})
	o.persist()
}

// attempt runs one try of a package inside a concurrency slot. started is
// false when no slot could be acquired.
func (o *Orchestrator) attempt(ctx context.Context, wave int, wp *models.WorkPackage, n int) (res attemptOutcome, started bool) {
	if err := o.slots.Acquire(ctx); err != nil {
		return attemptOutcome{outcome: state.OutcomeCancelled, reason: ReasonCancelled}, false
	}
	defer o.slots.Release()

	begin := o.opts.now()
	o.mu.Lock()
	wp.Status = models.StatusRunning
	wp.Attempts++
	wp.Agent = o.agent.Name()
	snap := wp.Clone()
	o.mu.Unlock()

	o.emit(Event{Type: EventWPStart, Wave: wave, WP: snap, Attempt: n, Message: fmt.Sprintf("WP %s: starting (attempt %d)", wp.ID, n)})
	o.persist()

	res = o.work(ctx, wp)

	// Cleanup runs even when the run is being cancelled.
	if err := o.workspaces.Remove(context.WithoutCancel(ctx), o.project, wp.ID, wp.Name); err != nil {
		o.log.WithRun(o.runID()).WithWP(wp.ID).Warn("worktree cleanup failed", "error", err)
	}

	o.recordAttempt(wp.ID, n, res, begin)
	return res, true
}

// work creates the worktree, runs the agent and merges the result.
func (o *Orchestrator) work(ctx context.Context, wp *models.WorkPackage) attemptOutcome {
	log := o.log.WithRun(o.runID()).WithWP(wp.ID)

	info, err := o.workspaces.Create(ctx, o.project, wp.ID, wp.Name)
	if err != nil {
		return attemptOutcome{outcome: state.OutcomeWorktreeFailed, reason: "Worktree creation failed: " + err.Error()}
	}
	o.mu.Lock()
	wp.Branch = info.Branch
	o.mu.Unlock()

	result := o.agent.Spawn(ctx, agent.SpawnOptions{
		Workdir: info.Path,
		Prompt:  BuildPrompt(wp, info.Path),
		Timeout: o.opts.agentTimeout,
		Env:     o.opts.agentEnv,
	})
	log.Debug("agent finished", "exit_code", result.ExitCode, "duration", result.Duration, "timed_out", result.TimedOut)

	if !result.Success {
		log.Debug("agent output", "tail", tail(result.Output, outputTailLen))
		switch {
		case ctx.Err() != nil:
			return attemptOutcome{outcome: state.OutcomeCancelled, reason: ReasonCancelled}
		case result.TimedOut:
			return attemptOutcome{outcome: state.OutcomeAgentFailed, reason: fmt.Sprintf("Agent timed out after %s", o.effectiveTimeout())}
		default:
			return attemptOutcome{outcome: state.OutcomeAgentFailed, reason: fmt.Sprintf("Agent exited %d", result.ExitCode)}
		}
	}

	mr, err := o.workspaces.Merge(ctx, wp.ID, wp.Name, o.cfg.Branch)
	if err != nil {
		return attemptOutcome{outcome: state.OutcomeMergeFailed, reason: "Merge failed: " + err.Error()}
	}
	if !mr.Merged {
		return attemptOutcome{outcome: state.OutcomeConflict, reason: "Merge conflicts: " + strings.Join(mr.Conflicts, ", ")}
	}
	return attemptOutcome{outcome: state.OutcomeDone}
}

func (o *Orchestrator) effectiveTimeout() time.Duration {
	if o.opts.agentTimeout > 0 {
		return o.opts.agentTimeout
	}
	return agent.DefaultTimeout
}

func (o *Orchestrator) runID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return ""
	}
	return o.state.ID
}

func (o *Orchestrator) emit(e Event) {
	e.RunID = o.runID()
	e.Timestamp = o.opts.now()
	o.opts.events.Emit(e)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
