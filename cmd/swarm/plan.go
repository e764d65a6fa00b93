package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/decompose"
	"github.com/dante-alpha-assistant/swarm-code/internal/graph"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

var planNormalize bool

var planCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Validate a plan and show its waves",
	Long: `Check a plan of work packages without running it.

The plan is parsed, validated and grouped into waves exactly as
'swarm run' would do. Use - to read the plan from standard input.

With --normalize, the validated plan is printed back as YAML instead.

Examples:
  swarm plan plan.yaml
  cat plan.json | swarm plan -
  swarm plan plan.json --normalize > plan.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanCmd,
}

func init() {
	planCmd.Flags().BoolVar(&planNormalize, "normalize", false, "Print the validated plan as YAML")
}

func runPlanCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	plan := &decompose.PlanFile{Path: args[0], Stdin: cmd.InOrStdin()}
	wps, err := plan.Decompose(ctx, decompose.Request{})
	if err != nil {
		return err
	}
	if planNormalize {
		return decompose.WritePlan(cmd.OutOrStdout(), wps)
	}
	return printWaves(cmd.OutOrStdout(), wps)
}

// printWaves lists the packages of each wave with their dependencies.
func printWaves(out io.Writer, wps []*models.WorkPackage) error {
	g := graph.New()
	if err := g.Build(wps); err != nil {
		return err
	}
	byID := make(map[string]*models.WorkPackage, len(wps))
	for _, wp := range wps {
		byID[wp.ID] = wp
	}

	levels := g.Levels()
	fmt.Fprintf(out, "%d work packages in %d waves\n", len(wps), len(levels))
	for i, ids := range levels {
		fmt.Fprintln(out)
		fmt.Fprintln(out, waveColor.Sprintf("Wave %d", i+1))
		for _, id := range ids {
			wp := byID[id]
			line := fmt.Sprintf("  %s %s", id, wp.Name)
			if len(wp.Dependencies) > 0 {
				line += dimColor.Sprintf(" (after %s)", strings.Join(wp.Dependencies, ", "))
			}
			fmt.Fprintln(out, line)
			fmt.Fprintln(out, dimColor.Sprint("    branch "+models.BranchName(wp.ID, wp.Name)))
		}
	}
	return nil
}
