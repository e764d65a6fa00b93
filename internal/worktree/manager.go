// Package worktree isolates each work package attempt in its own git
// worktree and merges finished work back into the target branch.
package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dante-alpha-assistant/swarm-code/internal/git"
	"github.com/dante-alpha-assistant/swarm-code/internal/logging"
	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// DefaultBaseDir is where worktrees are created when Options.BaseDir is empty.
var DefaultBaseDir = filepath.Join(os.TempDir(), "swarm-code")

// MergeResult is the outcome of merging a work package branch.
type MergeResult struct {
	// Merged is true when the branch was merged cleanly.
	Merged bool
	// Conflicts lists unmerged paths when Merged is false.
	Conflicts []string
}

// Options configures a Manager.
type Options struct {
	// BaseDir is the root directory for worktrees.
	BaseDir string
	// Runner executes git commands. Defaults to git.NewRunner(repoPath).
	Runner git.Runner
	// Logger receives operation logs. Defaults to a no-op logger.
	Logger *logging.Logger
}

// Manager creates, merges and removes work package worktrees for one
// repository. Every operation that mutates the repository holds the same
// lock, so checkouts and merges never interleave.
type Manager struct {
	baseDir  string
	repoPath string
	git      git.Runner
	log      *logging.Logger
	mu       sync.Mutex
}

// New creates a Manager for the repository at repoPath.
func New(repoPath string, opts Options) *Manager {
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	runner := opts.Runner
	if runner == nil {
		runner = git.NewRunner(repoPath)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		baseDir:  baseDir,
		repoPath: repoPath,
		git:      runner,
		log:      logger.WithComponent("worktree"),
	}
}

// BaseDir returns the root directory for worktrees.
func (m *Manager) BaseDir() string { return m.baseDir }

// RepoPath returns the main repository path.
func (m *Manager) RepoPath() string { return m.repoPath }

// Path returns the worktree directory for a work package.
func (m *Manager) Path(project, wpID string) string {
	return filepath.Join(m.baseDir, project, wpID)
}

// Branch returns the branch a work package's worktree is created on.
func (m *Manager) Branch(wpID, name string) string {
	return models.BranchName(wpID, name)
}

// Create adds a worktree on a fresh branch for the work package. A branch
// left behind by an interrupted run is removed first.
func (m *Manager) Create(ctx context.Context, project, wpID, name string) (*Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.Path(project, wpID)
	branch := m.Branch(wpID, name)

	if exists, err := m.git.BranchExists(ctx, branch); err == nil && exists {
		m.log.Warn("removing stale worktree", "path", path, "branch", branch)
		_ = m.git.WorktreeRemoveForce(ctx, path)
		_ = m.git.DeleteBranch(ctx, branch)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create worktree parent directory: %w", err)
	}

	m.log.Info("creating worktree", "path", path, "branch", branch)
	if err := m.git.WorktreeAddNewBranch(ctx, path, branch); err != nil {
		return nil, fmt.Errorf("create worktree %s: %w", path, err)
	}

	return &Info{Path: path, Branch: branch, Head: m.head(ctx, path, branch)}, nil
}

// head resolves the worktree's commit, preferring a direct read of the
// repository over spawning git.
func (m *Manager) head(ctx context.Context, path, branch string) string {
	if h, err := git.HeadCommit(path); err == nil {
		return h
	}
	h, err := m.git.RevParse(ctx, branch)
	if err != nil {
		m.log.Debug("could not resolve worktree head", "path", path, "error", err)
		return ""
	}
	return h
}

// List returns every worktree attached to the repository, the main one
// included.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	out, err := m.git.WorktreeListPorcelain(ctx)
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	return parseWorktreeList(out), nil
}

// Merge merges the work package branch into target. On conflict the merge
// is aborted and the conflicted paths are returned. A merge that fails
// without conflicts is aborted and reported as an error.
func (m *Manager) Merge(ctx context.Context, wpID, name, target string) (*MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	branch := m.Branch(wpID, name)
	m.log.Info("merging", "branch", branch, "target", target)

	if err := m.git.CheckoutBranch(ctx, target); err != nil {
		return nil, fmt.Errorf("checkout %s: %w", target, err)
	}

	mergeErr := m.git.MergeNoEdit(ctx, branch)
	if mergeErr == nil {
		return &MergeResult{Merged: true}, nil
	}

	conflicts, err := m.git.ConflictedFiles(ctx)
	if err != nil {
		m.log.Warn("could not list conflicted files", "error", err)
	}
	if abortErr := m.git.MergeAbort(ctx); abortErr != nil && len(conflicts) > 0 {
		m.log.Error("merge abort failed", "branch", branch, "error", abortErr)
	}

	if len(conflicts) == 0 {
		return nil, fmt.Errorf("merge %s into %s: %w", branch, target, mergeErr)
	}
	m.log.Warn("merge conflicts", "branch", branch, "files", strings.Join(conflicts, ","))
	return &MergeResult{Conflicts: conflicts}, nil
}

// Remove deletes the work package worktree and its branch. Both steps are
// always attempted.
func (m *Manager) Remove(ctx context.Context, project, wpID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.Path(project, wpID)
	branch := m.Branch(wpID, name)
	m.log.Info("removing worktree", "path", path, "branch", branch)

	return m.removeLocked(ctx, path, branch)
}

func (m *Manager) removeLocked(ctx context.Context, path, branch string) error {
	var errs []error
	if err := m.git.WorktreeRemoveForce(ctx, path); err != nil {
		errs = append(errs, fmt.Errorf("remove worktree %s: %w", path, err))
	}
	if err := m.git.DeleteBranch(ctx, branch); err != nil {
		errs = append(errs, fmt.Errorf("delete branch %s: %w", branch, err))
	}
	return errors.Join(errs...)
}

// CleanupAll removes every worktree on a swarm branch, deletes those
// branches and prunes stale entries. It returns the worktrees it removed.
func (m *Manager) CleanupAll(ctx context.Context) ([]Info, error) {
	stale, err := m.ListStale(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, wt := range stale {
		m.log.Info("cleaning up worktree", "path", wt.Path, "branch", wt.Branch)
		if err := m.removeLocked(ctx, wt.Path, wt.Branch); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.git.WorktreePrune(ctx); err != nil {
		errs = append(errs, fmt.Errorf("prune worktrees: %w", err))
	}
	return stale, errors.Join(errs...)
}

// ListStale returns the worktrees that CleanupAll would remove.
func (m *Manager) ListStale(ctx context.Context) ([]Info, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	var stale []Info
	for _, wt := range all {
		if strings.HasPrefix(wt.Branch, models.BranchPrefix) {
			stale = append(stale, wt)
		}
	}
	return stale, nil
}
