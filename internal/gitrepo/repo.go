// Package gitrepo wraps local repository access for the release workflow.
// Read operations and branch/commit creation go through go-git; porcelain
// operations go-git does not implement (push, merge, remote branch
// deletion) shell out to the git binary through the exec runner.
package gitrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/exec"
)

// Repo provides the git operations shipkit needs.
type Repo struct {
	path   string
	repo   *git.Repository
	runner exec.Runner
}

// Commit is a single log entry used for changelog and report generation.
type Commit struct {
	Hash    string
	Subject string
	Author  string
}

// Open opens the repository at path.
func Open(path string, runner exec.Runner) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.NewGitError(errors.ErrCodeNotARepository,
			"not a git repository: "+path, err).
			WithRemediation("run shipkit from inside the repository, or git init first")
	}

	return &Repo{
		path:   path,
		repo:   repo,
		runner: runner,
	}, nil
}

// Path returns the directory the repository was opened at.
func (r *Repo) Path() string {
	return r.path
}

// IsClean reports whether the worktree has no uncommitted changes.
func (r *Repo) IsClean() (bool, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read worktree status: %w", err)
	}

	return status.IsClean(), nil
}

// CurrentBranch returns the short name of the checked-out branch.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash().String()[:7])
	}

	return head.Name().Short(), nil
}

// BranchExists reports whether a local branch with the given name exists.
func (r *Repo) BranchExists(name string) bool {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	return err == nil
}

// Versions returns all semantic versions among tags carrying the given
// prefix, sorted ascending. Non-semver tags are ignored.
func (r *Repo) Versions(tagPrefix string) ([]*semver.Version, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	var versions []*semver.Version
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if tagPrefix != "" && !strings.HasPrefix(name, tagPrefix) {
			return nil
		}

		v, parseErr := semver.NewVersion(strings.TrimPrefix(name, tagPrefix))
		if parseErr != nil {
			return nil // non-semver tags are ignored
		}

		versions = append(versions, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	sort.Sort(semver.Collection(versions))
	return versions, nil
}

// LatestVersion returns the highest semantic version among tags carrying the
// given prefix, or nil when the repository has no version tags yet.
func (r *Repo) LatestVersion(tagPrefix string) (*semver.Version, error) {
	versions, err := r.Versions(tagPrefix)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return versions[len(versions)-1], nil
}

// CreateBranch creates a new branch at HEAD and checks it out.
func (r *Repo) CreateBranch(name string) error {
	if r.BranchExists(name) {
		return errors.ErrBranchExists(name)
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	err = worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	if err != nil {
		return errors.NewGitError(errors.ErrCodeInternal,
			"failed to create branch "+name, err)
	}

	return nil
}

// Checkout switches to an existing local branch.
func (r *Repo) Checkout(name string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	err = worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
	})
	if err != nil {
		return errors.NewGitError(errors.ErrCodeInternal,
			"failed to checkout branch "+name, err)
	}

	return nil
}

// CommitAll stages all changes and commits them with the given message.
func (r *Repo) CommitAll(message, authorName, authorEmail string) (string, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	if _, err := worktree.Add("."); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	opts := &git.CommitOptions{}
	if authorName != "" {
		opts.Author = &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  timeNow(),
		}
	}

	hash, err := worktree.Commit(message, opts)
	if err != nil {
		return "", errors.NewGitError(errors.ErrCodeInternal, "commit failed", err)
	}

	return hash.String(), nil
}

// CommitsSince returns commits from HEAD back to (excluding) the commit the
// given tag points at. An empty tag returns the full history of HEAD.
func (r *Repo) CommitsSince(tag string) ([]Commit, error) {
	var stopAt plumbing.Hash

	if tag != "" {
		ref, err := r.repo.Reference(plumbing.NewTagReferenceName(tag), true)
		if err != nil {
			return nil, errors.NewGitError(errors.ErrCodeTagInvalid,
				"tag not found: "+tag, err)
		}
		stopAt = ref.Hash()

		// Annotated tags point at a tag object, not the commit.
		if tagObj, err := r.repo.TagObject(stopAt); err == nil {
			stopAt = tagObj.Target
		}
	}

	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if c.Hash == stopAt {
			return storer.ErrStop
		}

		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Subject: strings.SplitN(c.Message, "\n", 2)[0],
			Author:  c.Author.Name,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk log: %w", err)
	}

	return commits, nil
}

// DeleteBranch removes a local branch.
func (r *Repo) DeleteBranch(name string) error {
	err := r.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name))
	if err != nil {
		return errors.NewGitError(errors.ErrCodeInternal,
			"failed to delete branch "+name, err)
	}
	return nil
}

// Porcelain operations delegated to the git binary.

// Push pushes a branch to origin.
func (r *Repo) Push(ctx context.Context, branch string) error {
	return r.git(ctx, "push", "--set-upstream", "origin", branch)
}

// PushTags pushes all tags to origin.
func (r *Repo) PushTags(ctx context.Context) error {
	return r.git(ctx, "push", "origin", "--tags")
}

// DeleteRemoteBranch removes a branch on origin.
func (r *Repo) DeleteRemoteBranch(ctx context.Context, branch string) error {
	return r.git(ctx, "push", "origin", "--delete", branch)
}

// Merge merges the named branch into the current branch with a merge commit.
func (r *Repo) Merge(ctx context.Context, branch, message string) error {
	return r.git(ctx, "merge", "--no-ff", "-m", message, branch)
}

// Pull fast-forwards the current branch from origin.
func (r *Repo) Pull(ctx context.Context, branch string) error {
	return r.git(ctx, "pull", "--ff-only", "origin", branch)
}

func (r *Repo) git(ctx context.Context, args ...string) error {
	result, err := r.runner.Run(ctx, "git", args, exec.Options{Dir: r.path})
	if err != nil {
		return errors.NewGitError(errors.ErrCodeInternal,
			"git "+strings.Join(args, " ")+" failed to execute", err)
	}

	if result.ExitCode != 0 {
		return errors.NewGitError(errors.ErrCodeInternal,
			fmt.Sprintf("git %s exited with %d: %s",
				strings.Join(args, " "), result.ExitCode, strings.TrimSpace(result.Stderr)), nil)
	}

	return nil
}
