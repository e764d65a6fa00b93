package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Status represents the lifecycle state of a work package.
type Status string

const (
	// StatusPending indicates the work package has not started.
	StatusPending Status = "pending"
	// StatusRunning indicates an agent attempt is in progress.
	StatusRunning Status = "running"
	// StatusDone indicates the work was merged into the target branch.
	StatusDone Status = "done"
	// StatusFailed indicates all attempts failed or a dependency failed.
	StatusFailed Status = "failed"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true for statuses that end a work package's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// BranchPrefix is the namespace for every branch created for a work package.
const BranchPrefix = "swarm/"

// WorkPackage is one independently executable unit of work.
type WorkPackage struct {
	// ID is unique within a run.
	ID string `json:"id" yaml:"id"`
	// Name is a short human-readable label.
	Name string `json:"name" yaml:"name"`
	// Description is the instruction text handed to the agent.
	Description string `json:"description" yaml:"description"`
	// Branch is the branch the work is carried on.
	Branch string `json:"branch" yaml:"branch"`
	// Dependencies lists IDs that must complete before this package runs.
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	// Status is the current lifecycle state.
	Status Status `json:"status" yaml:"status"`
	// Agent is the name of the agent that ran this package.
	Agent string `json:"agent,omitempty" yaml:"agent,omitempty"`
	// Error holds the most recent failure reason.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	// Attempts counts agent attempts started for this package.
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// Clone returns a deep copy of the work package.
func (wp *WorkPackage) Clone() *WorkPackage {
	if wp == nil {
		return nil
	}
	c := *wp
	if wp.Dependencies != nil {
		c.Dependencies = append([]string{}, wp.Dependencies...)
	}
	return &c
}

// Normalize resets the package to a fresh pending state. It never fills in
// required fields, so Validate still sees what the caller supplied.
func (wp *WorkPackage) Normalize() {
	wp.Status = StatusPending
	wp.Error = ""
	wp.Attempts = 0
	if wp.Dependencies == nil {
		wp.Dependencies = []string{}
	}
}

// ValidationError reports a malformed work package.
type ValidationError struct {
	ID     string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid work package at index %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid work package %q: %s", e.ID, e.Reason)
}

// Validate checks required fields and ID uniqueness. It stops at the first
// problem found.
func Validate(wps []*WorkPackage) error {
	seen := make(map[string]struct{}, len(wps))
	for i, wp := range wps {
		if wp == nil {
			return &ValidationError{Index: i, Reason: "nil entry"}
		}
		var missing []string
		if wp.ID == "" {
			missing = append(missing, "id")
		}
		if wp.Name == "" {
			missing = append(missing, "name")
		}
		if wp.Description == "" {
			missing = append(missing, "description")
		}
		if wp.Branch == "" {
			missing = append(missing, "branch")
		}
		if len(missing) > 0 {
			return &ValidationError{ID: wp.ID, Index: i, Reason: "missing " + strings.Join(missing, ", ")}
		}
		if _, dup := seen[wp.ID]; dup {
			return &ValidationError{ID: wp.ID, Index: i, Reason: "duplicate id"}
		}
		seen[wp.ID] = struct{}{}
	}
	return nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugLen = 48

// Slug converts a name into a lowercase kebab-case token usable in a ref name.
func Slug(name string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "wp"
	}
	return s
}

// BranchName returns the branch a work package is carried on.
func BranchName(id, name string) string {
	return BranchPrefix + id + "/" + Slug(name)
}
