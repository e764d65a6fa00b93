// Package git wraps the git operations used to isolate and merge work.
package git

import "context"

// BranchOperations defines git branch operations.
type BranchOperations interface {
	// CurrentBranch returns the name of the checked-out branch.
	CurrentBranch(ctx context.Context) (string, error)
	// CheckoutBranch switches to the specified branch.
	CheckoutBranch(ctx context.Context, name string) error
	// BranchExists returns true if the local branch exists.
	BranchExists(ctx context.Context, name string) (bool, error)
	// DeleteBranch force-deletes the specified branch.
	DeleteBranch(ctx context.Context, name string) error
	// RevParse resolves a ref to a commit hash.
	RevParse(ctx context.Context, ref string) (string, error)
}

// MergeOperations defines git merge operations.
type MergeOperations interface {
	// MergeNoEdit merges branch into the current branch with the default message.
	MergeNoEdit(ctx context.Context, branch string) error
	// MergeAbort aborts an in-progress merge.
	MergeAbort(ctx context.Context) error
	// ConflictedFiles returns files with unmerged changes.
	ConflictedFiles(ctx context.Context) ([]string, error)
}

// WorktreeOperations defines git worktree operations.
type WorktreeOperations interface {
	// WorktreeAddNewBranch creates a worktree at path on a new branch (git worktree add -b).
	WorktreeAddNewBranch(ctx context.Context, path, branch string) error
	// WorktreeRemoveForce removes the worktree at path, discarding local changes.
	WorktreeRemoveForce(ctx context.Context, path string) error
	// WorktreeListPorcelain returns the raw output of git worktree list --porcelain.
	WorktreeListPorcelain(ctx context.Context) (string, error)
	// WorktreePrune removes stale worktree administrative entries.
	WorktreePrune(ctx context.Context) error
}

// Runner defines the complete set of git operations.
// Consumers should prefer the focused interfaces when possible.
type Runner interface {
	BranchOperations
	MergeOperations
	WorktreeOperations
	// Run executes an arbitrary git command and returns trimmed output.
	Run(ctx context.Context, args ...string) (string, error)
	// RepoPath returns the directory commands run in.
	RepoPath() string
}
