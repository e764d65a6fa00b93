package decompose

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dante-alpha-assistant/swarm-code/internal/graph"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

func TestParseResponse_Valid(t *testing.T) {
	response := `[
		{"id": "wp-1", "name": "Types", "description": "Add shared types", "branch": "swarm/wp-1/types"},
		{"id": "wp-2", "name": "API", "description": "Add the API", "branch": "swarm/wp-2/api", "dependencies": ["wp-1"], "status": "done"}
	]`

	wps, err := ParseResponse(response)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if len(wps) != 2 {
		t.Fatalf("got %d packages, want 2", len(wps))
	}
	if wps[0].Dependencies == nil || len(wps[0].Dependencies) != 0 {
		t.Errorf("wp-1 dependencies = %#v, want empty slice", wps[0].Dependencies)
	}
	if wps[1].Status != models.StatusPending {
		t.Errorf("wp-2 status = %q, want pending", wps[1].Status)
	}
}

func TestParseResponse_WithFencesAndExtraText(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "markdown fence",
			response: "```json\n[{\"id\":\"wp-1\",\"name\":\"A\",\"description\":\"d\",\"branch\":\"swarm/wp-1/a\"}]\n```",
		},
		{
			name:     "leading prose",
			response: "Here is the plan:\n[{\"id\":\"wp-1\",\"name\":\"A\",\"description\":\"d\",\"branch\":\"swarm/wp-1/a\"}]\nGood luck.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wps, err := ParseResponse(tt.response)
			if err != nil {
				t.Fatalf("ParseResponse failed: %v", err)
			}
			if len(wps) != 1 || wps[0].ID != "wp-1" {
				t.Errorf("got %+v", wps)
			}
		})
	}
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"no array", "I could not do it", "no JSON array"},
		{"bad json", "[{]", "unmarshal"},
		{"empty list", "[]", "empty work package list"},
		{"missing name and branch", `[{"id":"wp-1","name":"","description":"d"}]`, "missing name, branch"},
		{"missing branch", `[{"id":"wp-1","name":"A","description":"d"}]`, "missing branch"},
		{"duplicate id", `[{"id":"a","name":"A","description":"d","branch":"b"},{"id":"a","name":"B","description":"d","branch":"c"}]`, "duplicate id"},
		{"unknown dep", `[{"id":"a","name":"A","description":"d","branch":"b","dependencies":["zz"]}]`, "unknown dependency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.response)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestPrepare_RequiresBranchAndDetectsCycles(t *testing.T) {
	var verr *models.ValidationError
	_, err := Prepare([]*models.WorkPackage{{ID: "wp-1", Name: "Add Login Form", Description: "d"}})
	if !errors.As(err, &verr) || !strings.Contains(err.Error(), "missing branch") {
		t.Fatalf("branchless package error = %v, want missing branch", err)
	}

	wps, err := Prepare([]*models.WorkPackage{{ID: "wp-1", Name: "Add Login Form", Description: "d", Branch: "feature/login"}})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if wps[0].Branch != "feature/login" {
		t.Errorf("Branch = %q, want the supplied branch", wps[0].Branch)
	}

	_, err = Prepare([]*models.WorkPackage{
		{ID: "a", Name: "A", Description: "d", Branch: "swarm/a/a", Dependencies: []string{"b"}},
		{ID: "b", Name: "B", Description: "d", Branch: "swarm/b/b", Dependencies: []string{"a"}},
	})
	if !errors.Is(err, graph.ErrCycleDetected) {
		t.Errorf("error = %v, want ErrCycleDetected", err)
	}

	if _, err := Prepare([]*models.WorkPackage{nil}); !errors.As(err, &verr) {
		t.Errorf("nil entry error = %v, want *models.ValidationError", err)
	}
}

func TestParsePlan_Formats(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "yaml list",
			data: `
- id: wp-1
  name: Types
  description: Add shared types
  branch: swarm/wp-1/types
- id: wp-2
  name: API
  description: Add the API
  branch: swarm/wp-2/api
  dependencies: [wp-1]
`,
		},
		{
			name: "yaml document",
			data: `
workPackages:
  - id: wp-1
    name: Types
    description: Add shared types
    branch: swarm/wp-1/types
  - id: wp-2
    name: API
    description: Add the API
    branch: swarm/wp-2/api
    dependencies:
      - wp-1
`,
		},
		{
			name: "json list",
			data: `[{"id":"wp-1","name":"Types","description":"Add shared types","branch":"swarm/wp-1/types"},
{"id":"wp-2","name":"API","description":"Add the API","branch":"swarm/wp-2/api","dependencies":["wp-1"]}]`,
		},
		{
			name: "json document",
			data: "{\n\t\"workPackages\": [\n\t\t{\"id\":\"wp-1\",\"name\":\"Types\",\"description\":\"Add shared types\",\"branch\":\"swarm/wp-1/types\"},\n\t\t{\"id\":\"wp-2\",\"name\":\"API\",\"description\":\"Add the API\",\"branch\":\"swarm/wp-2/api\",\"dependencies\":[\"wp-1\"]}\n\t]\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wps, err := ParsePlan([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParsePlan failed: %v", err)
			}
			if len(wps) != 2 {
				t.Fatalf("got %d packages, want 2", len(wps))
			}
			if wps[1].Branch != "swarm/wp-2/api" {
				t.Errorf("Branch = %q", wps[1].Branch)
			}
			if len(wps[1].Dependencies) != 1 || wps[1].Dependencies[0] != "wp-1" {
				t.Errorf("Dependencies = %v", wps[1].Dependencies)
			}
		})
	}
}

func TestParsePlan_Errors(t *testing.T) {
	if _, err := ParsePlan([]byte("   ")); !errors.Is(err, ErrEmptyPlan) {
		t.Errorf("blank plan error = %v, want ErrEmptyPlan", err)
	}
	if _, err := ParsePlan([]byte("just a string")); err == nil {
		t.Error("scalar plan accepted")
	}
	if _, err := ParsePlan([]byte("workPackages: []")); !errors.Is(err, ErrEmptyPlan) {
		t.Errorf("empty document error = %v, want ErrEmptyPlan", err)
	}
	if _, err := ParsePlan([]byte(`[{"id":"wp-1","name":"A","description":"d"}]`)); err == nil || !strings.Contains(err.Error(), "missing branch") {
		t.Errorf("branchless plan error = %v, want missing branch", err)
	}
}

func TestPlanFile_Decompose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte("- id: wp-1\n  name: One\n  description: do one\n  branch: swarm/wp-1/one\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var d Decomposer = NewPlanFile(path)
	wps, err := d.Decompose(context.Background(), Request{Prompt: "ignored"})
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(wps) != 1 || wps[0].Status != models.StatusPending {
		t.Errorf("got %+v", wps)
	}

	if _, err := NewPlanFile(filepath.Join(t.TempDir(), "missing.yaml")).Decompose(context.Background(), Request{}); err == nil {
		t.Error("missing plan file accepted")
	}
}

func TestPlanFile_Stdin(t *testing.T) {
	p := &PlanFile{Path: StdinPath, Stdin: strings.NewReader(`[{"id":"a","name":"A","description":"d","branch":"swarm/a/a"}]`)}
	wps, err := p.Decompose(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if wps[0].Branch != "swarm/a/a" {
		t.Errorf("Branch = %q", wps[0].Branch)
	}
}

func TestWritePlan_RoundTrip(t *testing.T) {
	in := []*models.WorkPackage{
		{ID: "wp-1", Name: "One", Description: "d1", Branch: "swarm/wp-1/one"},
		{ID: "wp-2", Name: "Two", Description: "d2", Branch: "swarm/wp-2/two", Dependencies: []string{"wp-1"}},
	}
	var buf bytes.Buffer
	if err := WritePlan(&buf, in); err != nil {
		t.Fatalf("WritePlan failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "workPackages:") {
		t.Errorf("output does not start with workPackages:\n%s", buf.String())
	}

	out, err := ParsePlan(buf.Bytes())
	if err != nil {
		t.Fatalf("ParsePlan of written plan failed: %v", err)
	}
	if len(out) != 2 || out[1].Dependencies[0] != "wp-1" {
		t.Errorf("round trip = %+v", out)
	}
}
