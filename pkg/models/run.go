package models

import "time"

// AgentType identifies which coding agent drives a run.
type AgentType string

const (
	// AgentClaude runs the claude CLI.
	AgentClaude AgentType = "claude"
	// AgentCodex runs the codex CLI.
	AgentCodex AgentType = "codex"
	// AgentCustom runs a user-supplied command template.
	AgentCustom AgentType = "custom"
)

// Valid returns true if the agent type is a known value.
func (a AgentType) Valid() bool {
	switch a {
	case AgentClaude, AgentCodex, AgentCustom:
		return true
	default:
		return false
	}
}

// RunConfig holds the settings of a run. It does not change once a run starts.
type RunConfig struct {
	// Repo is the repository path or remote the run targets.
	Repo string `json:"repo"`
	// Branch is the target branch successful work is merged into.
	Branch string `json:"branch"`
	// Agent selects the agent implementation.
	Agent AgentType `json:"agent"`
	// Model is forwarded to the agent when set.
	Model string `json:"model,omitempty"`
	// CustomCommand is the command template for the custom agent.
	CustomCommand string `json:"customCommand,omitempty"`
	// MaxConcurrent bounds simultaneous agent attempts.
	MaxConcurrent int `json:"maxConcurrent"`
	// AgentTimeout bounds a single agent attempt.
	AgentTimeout string `json:"agentTimeout,omitempty"`
}

// RunState is the persisted record of a run.
type RunState struct {
	// ID uniquely identifies the run.
	ID string `json:"id,omitempty"`
	// Config is the configuration the run was started with.
	Config RunConfig `json:"config"`
	// WorkPackages holds every package with its current status.
	WorkPackages []*WorkPackage `json:"workPackages"`
	// StartedAt is when the run began.
	StartedAt *time.Time `json:"startedAt,omitempty"`
	// CompletedAt is set once every wave has settled.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a deep copy of the run state.
func (s *RunState) Clone() *RunState {
	if s == nil {
		return nil
	}
	c := *s
	c.WorkPackages = make([]*WorkPackage, len(s.WorkPackages))
	for i, wp := range s.WorkPackages {
		c.WorkPackages[i] = wp.Clone()
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Find returns the work package with the given ID, or nil.
func (s *RunState) Find(id string) *WorkPackage {
	for _, wp := range s.WorkPackages {
		if wp.ID == id {
			return wp
		}
	}
	return nil
}

// Summary counts work packages per status.
type Summary struct {
	Total   int
	Pending int
	Running int
	Done    int
	Failed  int
}

// Summary returns per-status counts for the run.
func (s *RunState) Summary() Summary {
	sum := Summary{Total: len(s.WorkPackages)}
	for _, wp := range s.WorkPackages {
		switch wp.Status {
		case StatusDone:
			sum.Done++
		case StatusFailed:
			sum.Failed++
		case StatusRunning:
			sum.Running++
		default:
			sum.Pending++
		}
	}
	return sum
}

// Complete returns true once the run has been stamped as finished.
func (s *RunState) Complete() bool {
	return s.CompletedAt != nil
}

// Duration returns the elapsed time of a finished run, or zero.
func (s *RunState) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}
