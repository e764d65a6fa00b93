// Package decompose turns a task description into the work packages a run
// executes.
package decompose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dante-alpha-assistant/swarm-code/internal/graph"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// ErrEmptyPlan is returned when a plan contains no work packages.
var ErrEmptyPlan = errors.New("empty work package list")

// Request describes what should be decomposed.
type Request struct {
	// Prompt is the free-text task.
	Prompt string
	// RepoPath is the repository the packages will run against.
	RepoPath string
}

// Decomposer produces the initial work package list for a run.
type Decomposer interface {
	Decompose(ctx context.Context, req Request) ([]*models.WorkPackage, error)
}

// Prepare normalizes every package and validates the list. It fails fast on
// the first malformed package, unknown dependency or cycle.
func Prepare(wps []*models.WorkPackage) ([]*models.WorkPackage, error) {
	if len(wps) == 0 {
		return nil, ErrEmptyPlan
	}
	for _, wp := range wps {
		if wp != nil {
			wp.Normalize()
		}
	}
	if err := models.Validate(wps); err != nil {
		return nil, err
	}
	if _, err := graph.AssignWaves(wps); err != nil {
		return nil, fmt.Errorf("validate dependencies: %w", err)
	}
	return wps, nil
}

// ParseResponse extracts a JSON array of work packages from free-form text,
// such as the reply of a model asked to decompose a task.
func ParseResponse(response string) ([]*models.WorkPackage, error) {
	body := stripFences(response)
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start == -1 || end == -1 || end <= start {
		preview := body
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return nil, fmt.Errorf("no JSON array found in response (got %d chars): %q", len(body), preview)
	}

	var wps []*models.WorkPackage
	if err := json.Unmarshal([]byte(body[start:end+1]), &wps); err != nil {
		return nil, fmt.Errorf("unmarshal work packages: %w", err)
	}
	return Prepare(wps)
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
