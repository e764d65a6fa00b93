package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when no repository encloses a path.
var ErrNotRepository = errors.New("not a git repository")

func openOptions() *gogit.PlainOpenOptions {
	return &gogit.PlainOpenOptions{DetectDotGit: true, EnableDotGitCommonDir: true}
}

// FindRepoRoot walks up from path to the top-level directory of the enclosing
// repository or linked worktree.
func FindRepoRoot(path string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(path, openOptions())
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return "", fmt.Errorf("open repository at %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("resolve worktree of %s: %w", path, err)
	}
	return wt.Filesystem.Root(), nil
}

// HeadCommit returns the commit hash HEAD points at in the repository or
// worktree containing path.
func HeadCommit(path string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(path, openOptions())
	if err != nil {
		return "", fmt.Errorf("open repository at %s: %w", path, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD in %s: %w", path, err)
	}
	return ref.Hash().String(), nil
}
