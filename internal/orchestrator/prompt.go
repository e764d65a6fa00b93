package orchestrator

import (
	"fmt"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// BuildPrompt returns the instruction handed to the agent for a work
// package checked out at workdir.
func BuildPrompt(wp *models.WorkPackage, workdir string) string {
	return fmt.Sprintf("%s\n\nWorking dir: %s. After done: git add -A && git commit -m 'WP-%s: %s'",
		wp.Description, workdir, wp.ID, wp.Name)
}
