// Package orchestrator runs the work packages of a plan against a git
// repository.
//
// Packages are grouped into waves by their dependencies. Waves run in
// order; the packages of a wave run concurrently, bounded by the run's
// MaxConcurrent setting. Each attempt gets its own worktree and branch:
//
//	create worktree -> spawn agent -> merge into target -> remove worktree
//
// A package that fails is retried up to MaxRetries times. Packages whose
// dependencies failed are marked failed without running. The run state is
// persisted after every change so an interrupted run can be resumed.
//
// Example usage:
//
//	orch, err := orchestrator.New(cfg, orchestrator.RequiredConfig{
//		RepoPath:   repo,
//		Agent:      a,
//		Workspaces: worktree.New(repo, worktree.Options{}),
//	}, orchestrator.WithStore(state.NewTracker(repo)))
//	final, err := orch.Run(ctx, packages)
package orchestrator
