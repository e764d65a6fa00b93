package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// StdinPath selects standard input as the plan source.
const StdinPath = "-"

// planDocument is the wrapped plan form.
type planDocument struct {
	WorkPackages []*models.WorkPackage `json:"workPackages" yaml:"workPackages"`
}

// PlanFile is a Decomposer backed by a pre-written YAML or JSON plan. The
// request prompt is ignored: the plan is already decomposed.
type PlanFile struct {
	// Path is the plan file, or StdinPath.
	Path string
	// Stdin is read when Path is StdinPath. Defaults to os.Stdin.
	Stdin io.Reader
}

// NewPlanFile creates a plan file decomposer.
func NewPlanFile(path string) *PlanFile {
	return &PlanFile{Path: path}
}

// Decompose reads, normalizes and validates the plan.
func (p *PlanFile) Decompose(ctx context.Context, _ Request) ([]*models.WorkPackage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	var err error
	if p.Path == StdinPath {
		in := p.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(p.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	wps, err := ParsePlan(data)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", p.Path, err)
	}
	return wps, nil
}

// ParsePlan decodes a plan in either JSON or YAML. Both a bare list and a
// document with a workPackages key are accepted.
func ParsePlan(data []byte) ([]*models.WorkPackage, error) {
	body := stripFences(string(data))
	if body == "" {
		return nil, ErrEmptyPlan
	}

	var wps []*models.WorkPackage
	var err error
	switch body[0] {
	case '[', '{':
		wps, err = parseJSONPlan(body)
	default:
		wps, err = parseYAMLPlan(body)
	}
	if err != nil {
		return nil, err
	}
	return Prepare(wps)
}

func parseJSONPlan(body string) ([]*models.WorkPackage, error) {
	if strings.HasPrefix(body, "[") {
		var wps []*models.WorkPackage
		if err := json.Unmarshal([]byte(body), &wps); err != nil {
			return nil, fmt.Errorf("decode JSON plan: %w", err)
		}
		return wps, nil
	}
	var doc planDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode JSON plan: %w", err)
	}
	return doc.WorkPackages, nil
}

func parseYAMLPlan(body string) ([]*models.WorkPackage, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(body), &root); err != nil {
		return nil, fmt.Errorf("decode YAML plan: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, ErrEmptyPlan
	}

	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var wps []*models.WorkPackage
		if err := node.Decode(&wps); err != nil {
			return nil, fmt.Errorf("decode YAML plan: %w", err)
		}
		return wps, nil
	case yaml.MappingNode:
		var doc planDocument
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode YAML plan: %w", err)
		}
		return doc.WorkPackages, nil
	default:
		return nil, fmt.Errorf("decode YAML plan: expected a list or a mapping at line %d", node.Line)
	}
}

// WritePlan encodes work packages as a YAML plan document.
func WritePlan(w io.Writer, wps []*models.WorkPackage) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(planDocument{WorkPackages: wps}); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}
