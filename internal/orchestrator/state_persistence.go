package orchestrator

import (
	"time"

	"github.com/dante-alpha-assistant/swarm-code/internal/state"
)

// persist saves a deep snapshot of the run. Failures are logged and kept
// for PersistErrors; they never stop the run.
func (o *Orchestrator) persist() {
	if o.opts.store == nil {
		return
	}

	o.persistMu.Lock()
	defer o.persistMu.Unlock()

	o.mu.Lock()
	snap := o.state.Clone()
	o.mu.Unlock()

	if err := o.opts.store.Save(snap); err != nil {
		o.log.WithRun(snap.ID).Error("failed to persist run state", "error", err)
		o.persistErrs = append(o.persistErrs, err)
	}
}

// recordRun upserts the run summary into the history store.
func (o *Orchestrator) recordRun() {
	if o.opts.history == nil {
		return
	}
	snap := o.Snapshot()
	if err := o.opts.history.RecordRun(state.RunRecordFromState(snap)); err != nil {
		o.log.WithRun(snap.ID).Warn("failed to record run history", "error", err)
	}
}

func (o *Orchestrator) recordAttempt(wpID string, n int, res attemptOutcome, begin time.Time) {
	if o.opts.history == nil {
		return
	}
	runID := o.runID()
	rec := &state.AttemptRecord{
		RunID:     runID,
		WPID:      wpID,
		Attempt:   n,
		Outcome:   res.outcome,
		Detail:    res.reason,
		StartedAt: begin,
		Duration:  o.opts.now().Sub(begin),
	}
	if err := o.opts.history.RecordAttempt(rec); err != nil {
		o.log.WithRun(runID).WithWP(wpID).Warn("failed to record attempt", "attempt", n, "error", err)
	}
}
