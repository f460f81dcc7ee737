package release

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/githost"
	"github.com/shipkit-io/shipkit/internal/gitrepo"
	"github.com/shipkit-io/shipkit/internal/logging"
)

// GitRepo is the slice of repository behaviour the release flow needs.
// *gitrepo.Repo satisfies it.
type GitRepo interface {
	Path() string
	IsClean() (bool, error)
	BranchExists(name string) bool
	Versions(tagPrefix string) ([]*semver.Version, error)
	LatestVersion(tagPrefix string) (*semver.Version, error)
	CreateBranch(name string) error
	Checkout(name string) error
	CommitAll(message, authorName, authorEmail string) (string, error)
	CommitsSince(tag string) ([]gitrepo.Commit, error)
	DeleteBranch(name string) error
	Push(ctx context.Context, branch string) error
	DeleteRemoteBranch(ctx context.Context, branch string) error
	Merge(ctx context.Context, branch, message string) error
}

// Host resolves published GitHub releases for the finish report.
// *githost.Client satisfies it.
type Host interface {
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*githost.Release, error)
}

// ConfirmFunc asks the user a yes/no question and reports their answer.
type ConfirmFunc func(prompt string) bool

// Engine drives the prepare and finish release flows.
type Engine struct {
	Repo    GitRepo
	Config  *config.Config
	Host    Host // may be nil when no token is available
	Logger  logging.Logger
	Confirm ConfirmFunc
	Out     io.Writer
	Now     func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// confirm gates a destructive step. yes bypasses the prompt.
func (e *Engine) confirm(prompt string, yes bool) bool {
	if yes {
		return true
	}
	if e.Confirm == nil {
		return false
	}
	return e.Confirm(prompt)
}

// PrepareOptions control the prepare flow.
type PrepareOptions struct {
	Bump    Bump
	Version string // explicit override, wins over Bump
	DryRun  bool
	Yes     bool
}

// PrepareResult summarizes what prepare did (or would do under dry-run).
type PrepareResult struct {
	Previous     string
	Version      string
	Branch       string
	ChangedFiles []string
	Pushed       bool
	DryRun       bool
}

// Prepare computes the next version, creates the release branch, rewrites
// version strings, updates the changelog, commits, and pushes.
func (e *Engine) Prepare(ctx context.Context, opts PrepareOptions) (*PrepareResult, error) {
	tagPrefix := e.Config.Release.TagPrefix

	latest, err := e.Repo.LatestVersion(tagPrefix)
	if err != nil {
		return nil, err
	}

	var next *semver.Version
	if opts.Version != "" {
		next, err = ParseVersion(opts.Version, tagPrefix)
		if err != nil {
			return nil, err
		}
	} else {
		next = Next(latest, opts.Bump)
	}

	if latest != nil && !next.GreaterThan(latest) {
		return nil, errors.NewValidationError(errors.ErrCodeTagInvalid,
			fmt.Sprintf("version %s is not after latest release %s", next, latest))
	}

	branch := BranchName(next)
	if e.Repo.BranchExists(branch) {
		return nil, errors.ErrBranchExists(branch)
	}

	result := &PrepareResult{Version: next.String(), Branch: branch, DryRun: opts.DryRun}
	if latest != nil {
		result.Previous = latest.String()
	}

	clean, err := e.Repo.IsClean()
	if err != nil {
		return nil, err
	}
	if !clean && !opts.DryRun {
		if !e.confirm("working tree has uncommitted changes, include them in the release?", opts.Yes) {
			return nil, errors.ErrCancelled
		}
	}

	if opts.DryRun {
		fmt.Fprintf(e.Out, "dry run: would create branch %s\n", branch)
		fmt.Fprintf(e.Out, "dry run: would rewrite version %s -> %s in %d file(s)\n",
			result.Previous, next, len(e.Config.Release.VersionFiles))
		fmt.Fprintf(e.Out, "dry run: would update %s and commit\n", e.Config.Release.ChangelogPath)
		return result, nil
	}

	if err := e.Repo.CreateBranch(branch); err != nil {
		return nil, err
	}
	e.Logger.Info(ctx, "created release branch", "branch", branch)

	result.ChangedFiles, err = RewriteVersions(e.Repo.Path(), e.Config.Release.VersionFiles, result.Previous, next.String())
	if err != nil {
		return nil, err
	}

	var sinceTag string
	if latest != nil {
		sinceTag = TagName(tagPrefix, latest)
	}
	commits, err := e.Repo.CommitsSince(sinceTag)
	if err != nil {
		return nil, err
	}
	subjects := make([]string, 0, len(commits))
	for _, commit := range commits {
		subjects = append(subjects, commit.Subject)
	}

	changelogPath := filepath.Join(e.Repo.Path(), e.Config.Release.ChangelogPath)
	err = UpdateChangelog(changelogPath, ChangelogEntry{
		Version: next.String(),
		Date:    e.now().Format("2006-01-02"),
		Commits: subjects,
	})
	if err != nil {
		return nil, err
	}

	if _, err := e.Repo.CommitAll("chore(release): prepare "+next.String(), "", ""); err != nil {
		return nil, err
	}
	e.Logger.Info(ctx, "committed release changes", "version", next.String())

	if e.confirm("push branch "+branch+" to origin?", opts.Yes) {
		if err := e.Repo.Push(ctx, branch); err != nil {
			return nil, err
		}
		result.Pushed = true
	}

	return result, nil
}

// FinishOptions control the finish flow.
type FinishOptions struct {
	Version       string // required
	SkipMergeBack bool
	DryRun        bool
	Yes           bool
}

// FinishResult summarizes what finish did.
type FinishResult struct {
	Version       string
	BranchDeleted bool
	MergedBack    bool
	ReportPath    string
	DryRun        bool
}

// Finish cleans up the release branch, merges the main branch back into the
// develop branch, and writes the release report.
func (e *Engine) Finish(ctx context.Context, opts FinishOptions) (*FinishResult, error) {
	tagPrefix := e.Config.Release.TagPrefix

	version, err := ParseVersion(opts.Version, tagPrefix)
	if err != nil {
		return nil, err
	}

	branch := BranchName(version)
	result := &FinishResult{Version: version.String(), DryRun: opts.DryRun}

	if opts.DryRun {
		fmt.Fprintf(e.Out, "dry run: would delete branch %s (local and origin)\n", branch)
		if !opts.SkipMergeBack {
			fmt.Fprintf(e.Out, "dry run: would merge %s back into %s\n",
				e.Config.Repo.MainBranch, e.Config.Repo.DevelopBranch)
		}
		fmt.Fprintf(e.Out, "dry run: would write release report for %s\n", version)
		return result, nil
	}

	if e.Repo.BranchExists(branch) {
		if !e.confirm("delete branch "+branch+" locally and on origin?", opts.Yes) {
			return nil, errors.ErrCancelled
		}
		if err := e.Repo.DeleteBranch(branch); err != nil {
			return nil, err
		}
		if err := e.Repo.DeleteRemoteBranch(ctx, branch); err != nil {
			e.Logger.Warn(ctx, err, "failed to delete remote branch", "branch", branch)
		}
		result.BranchDeleted = true
		e.Logger.Info(ctx, "deleted release branch", "branch", branch)
	}

	if !opts.SkipMergeBack {
		main, develop := e.Config.Repo.MainBranch, e.Config.Repo.DevelopBranch
		if !e.confirm(fmt.Sprintf("merge %s back into %s and push?", main, develop), opts.Yes) {
			return nil, errors.ErrCancelled
		}
		if err := e.Repo.Checkout(develop); err != nil {
			return nil, err
		}
		if err := e.Repo.Merge(ctx, main, fmt.Sprintf("chore: merge %s back into %s after %s", main, develop, version)); err != nil {
			return nil, err
		}
		if err := e.Repo.Push(ctx, develop); err != nil {
			return nil, err
		}
		result.MergedBack = true
		e.Logger.Info(ctx, "merged release back", "from", main, "into", develop)
	}

	result.ReportPath, err = e.writeReport(ctx, version)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// writeReport gathers the commit log since the previous release and any
// published GitHub release, then renders the markdown report.
func (e *Engine) writeReport(ctx context.Context, version *semver.Version) (string, error) {
	tagPrefix := e.Config.Release.TagPrefix
	tag := TagName(tagPrefix, version)

	report := Report{
		Version: version.String(),
		Date:    e.now().Format("2006-01-02"),
		Repo:    e.Config.Repo.Slug(),
		Tag:     tag,
	}

	if previous := e.previousVersion(version); previous != nil {
		if commits, err := e.Repo.CommitsSince(TagName(tagPrefix, previous)); err == nil {
			report.Commits = commits
		}
	} else if commits, err := e.Repo.CommitsSince(""); err == nil {
		report.Commits = commits
	}

	if e.Host != nil {
		release, err := e.Host.GetReleaseByTag(ctx, e.Config.Repo.Owner, e.Config.Repo.Name, tag)
		if err != nil {
			e.Logger.Warn(ctx, err, "failed to fetch GitHub release", "tag", tag)
		} else if release != nil {
			report.ReleaseURL = release.URL
			report.Notes = release.Notes
		}
	}

	dir := filepath.Join(e.Repo.Path(), e.Config.Release.ReportDir)
	return WriteReport(dir, report)
}

// previousVersion finds the highest tagged version strictly below version.
func (e *Engine) previousVersion(version *semver.Version) *semver.Version {
	versions, err := e.Repo.Versions(e.Config.Release.TagPrefix)
	if err != nil {
		return nil
	}

	var previous *semver.Version
	for _, v := range versions {
		if v.LessThan(version) {
			previous = v
		}
	}
	return previous
}
