package worktree

import (
	"bufio"
	"strings"
)

// Info describes one worktree attached to the repository.
type Info struct {
	// Path is the worktree's directory.
	Path string
	// Branch is the checked-out branch without the refs/heads/ prefix.
	Branch string
	// Head is the commit the worktree points at.
	Head string
	// Detached is set when HEAD is not on a branch.
	Detached bool
	// Bare is set for the bare repository entry.
	Bare bool
	// Locked is set when the worktree is locked against pruning.
	Locked bool
}

// parseWorktreeList parses the output of 'git worktree list --porcelain'.
// Entries are separated by blank lines; the last entry may lack one.
func parseWorktreeList(output string) []Info {
	var worktrees []Info
	var current *Info

	flush := func() {
		if current != nil && current.Path != "" {
			worktrees = append(worktrees, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &Info{Path: strings.TrimPrefix(line, "worktree ")}
		case current == nil:
			// Attribute without a worktree line; ignore.
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "detached":
			current.Detached = true
		case line == "bare":
			current.Bare = true
		case line == "locked" || strings.HasPrefix(line, "locked "):
			current.Locked = true
		}
	}
	flush()

	return worktrees
}
