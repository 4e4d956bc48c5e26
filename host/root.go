package host

import (
	"errors"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
)

// FindRoot returns the worktree root of the git repository containing dir.
// Outside a repository, or for a bare one, dir itself is the root.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return abs, nil
	}
	if err != nil {
		return "", err
	}

	wt, err := repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return abs, nil
	}
	if err != nil {
		return "", err
	}
	return wt.Filesystem.Root(), nil
}
