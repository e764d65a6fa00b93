package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Error is returned when a git command exits unsuccessfully.
type Error struct {
	// Args are the arguments passed to git.
	Args []string
	// ExitCode is git's exit code, or -1 if git could not be run.
	ExitCode int
	// Output is git's combined output.
	Output string
	// Err is the underlying error from os/exec.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Output))
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode extracts the git exit code from err, or -1 when err is not an *Error.
func ExitCode(err error) int {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.ExitCode
	}
	return -1
}

// ExecRunner implements Runner using the git binary.
type ExecRunner struct {
	repoPath string
}

// NewRunner creates a new git runner for the repository at the given path.
func NewRunner(repoPath string) *ExecRunner {
	return &ExecRunner{repoPath: repoPath}
}

// RepoPath returns the directory commands run in.
func (r *ExecRunner) RepoPath() string {
	return r.repoPath
}

// run executes a git command and returns its trimmed output.
func (r *ExecRunner) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.repoPath
	out, err := cmd.CombinedOutput()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &Error{Args: args, ExitCode: code, Output: string(out), Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}

// runSilent executes a git command and ignores output.
func (r *ExecRunner) runSilent(ctx context.Context, args ...string) error {
	_, err := r.run(ctx, args...)
	return err
}

// Run executes an arbitrary git command with the given arguments.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, args...)
}

// CurrentBranch returns the name of the current branch.
func (r *ExecRunner) CurrentBranch(ctx context.Context) (string, error) {
	return r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// CheckoutBranch switches to the specified branch.
func (r *ExecRunner) CheckoutBranch(ctx context.Context, name string) error {
	return r.runSilent(ctx, "checkout", name)
}

// BranchExists returns true if the branch exists.
func (r *ExecRunner) BranchExists(ctx context.Context, name string) (bool, error) {
	err := r.runSilent(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err == nil {
		return true, nil
	}
	// Exit code 1 means the ref is absent.
	if ExitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("check branch exists: %w", err)
}

// DeleteBranch force-deletes the specified branch.
func (r *ExecRunner) DeleteBranch(ctx context.Context, name string) error {
	return r.runSilent(ctx, "branch", "-D", name)
}

// RevParse resolves a ref to a commit hash.
func (r *ExecRunner) RevParse(ctx context.Context, ref string) (string, error) {
	return r.run(ctx, "rev-parse", ref)
}

// MergeNoEdit merges branch into the current branch without opening an editor.
func (r *ExecRunner) MergeNoEdit(ctx context.Context, branch string) error {
	return r.runSilent(ctx, "merge", "--no-edit", branch)
}

// MergeAbort aborts an in-progress merge.
func (r *ExecRunner) MergeAbort(ctx context.Context) error {
	return r.runSilent(ctx, "merge", "--abort")
}

// ConflictedFiles returns a list of files with unmerged changes.
func (r *ExecRunner) ConflictedFiles(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// WorktreeAddNewBranch creates a new worktree with a new branch.
func (r *ExecRunner) WorktreeAddNewBranch(ctx context.Context, path, branch string) error {
	return r.runSilent(ctx, "worktree", "add", "-b", branch, path)
}

// WorktreeRemoveForce removes the worktree at the given path.
func (r *ExecRunner) WorktreeRemoveForce(ctx context.Context, path string) error {
	return r.runSilent(ctx, "worktree", "remove", "--force", path)
}

// WorktreeListPorcelain returns the raw porcelain output for detailed parsing.
func (r *ExecRunner) WorktreeListPorcelain(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "worktree", "list", "--porcelain")
	cmd.Dir = r.repoPath
	// Untrimmed: the blank-line block separators matter to the parser.
	out, err := cmd.Output()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
			out = append(out, exitErr.Stderr...)
		}
		return "", &Error{Args: []string{"worktree", "list", "--porcelain"}, ExitCode: code, Output: string(out), Err: err}
	}
	return string(out), nil
}

// WorktreePrune removes stale worktree entries.
func (r *ExecRunner) WorktreePrune(ctx context.Context) error {
	return r.runSilent(ctx, "worktree", "prune")
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Verify ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)
