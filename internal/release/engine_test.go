package release

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/githost"
	"github.com/shipkit-io/shipkit/internal/gitrepo"
	"github.com/shipkit-io/shipkit/internal/logging"
)

// fakeRepo records mutations instead of touching a real repository, while
// rewrites and changelog updates still hit a real temp directory.
type fakeRepo struct {
	path     string
	clean    bool
	versions []string
	branches map[string]bool
	commits  []gitrepo.Commit

	created []string
	checked []string
	merged  []string
	pushed  []string
	deleted []string
	remote  []string
	commit  string

	remoteErr error
}

func newFakeRepo(t *testing.T, versions ...string) *fakeRepo {
	t.Helper()
	return &fakeRepo{
		path:     t.TempDir(),
		clean:    true,
		versions: versions,
		branches: map[string]bool{"main": true, "develop": true},
		commits: []gitrepo.Commit{
			{Hash: "aaaa1111bbbb2222", Subject: "feat: add widget", Author: "Dana"},
			{Hash: "cccc3333dddd4444", Subject: "fix: widget crash", Author: "Sam"},
		},
	}
}

func (f *fakeRepo) Path() string                  { return f.path }
func (f *fakeRepo) IsClean() (bool, error)        { return f.clean, nil }
func (f *fakeRepo) BranchExists(name string) bool { return f.branches[name] }

func (f *fakeRepo) Versions(tagPrefix string) ([]*semver.Version, error) {
	parsed := make([]*semver.Version, 0, len(f.versions))
	for _, v := range f.versions {
		parsed = append(parsed, semver.MustParse(v))
	}
	return parsed, nil
}

func (f *fakeRepo) LatestVersion(tagPrefix string) (*semver.Version, error) {
	versions, _ := f.Versions(tagPrefix)
	if len(versions) == 0 {
		return nil, nil
	}
	return versions[len(versions)-1], nil
}

func (f *fakeRepo) CreateBranch(name string) error {
	f.branches[name] = true
	f.created = append(f.created, name)
	return nil
}

func (f *fakeRepo) Checkout(name string) error {
	f.checked = append(f.checked, name)
	return nil
}

func (f *fakeRepo) CommitAll(message, authorName, authorEmail string) (string, error) {
	f.commit = message
	return "deadbeef", nil
}

func (f *fakeRepo) CommitsSince(tag string) ([]gitrepo.Commit, error) {
	return f.commits, nil
}

func (f *fakeRepo) DeleteBranch(name string) error {
	delete(f.branches, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeRepo) Push(ctx context.Context, branch string) error {
	f.pushed = append(f.pushed, branch)
	return nil
}

func (f *fakeRepo) DeleteRemoteBranch(ctx context.Context, branch string) error {
	if f.remoteErr != nil {
		return f.remoteErr
	}
	f.remote = append(f.remote, branch)
	return nil
}

func (f *fakeRepo) Merge(ctx context.Context, branch, message string) error {
	f.merged = append(f.merged, branch)
	return nil
}

type fakeHost struct {
	release *githost.Release
	err     error
}

func (f *fakeHost) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*githost.Release, error) {
	return f.release, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Project: config.ProjectConfig{Name: "Falcon", Kind: "app"},
		Repo: config.RepoConfig{
			Owner:         "acme",
			Name:          "falcon",
			MainBranch:    "main",
			DevelopBranch: "develop",
		},
		Release: config.ReleaseConfig{
			TagPrefix:     "v",
			ChangelogPath: "CHANGELOG.md",
			VersionFiles:  []string{"README.md"},
			ReportDir:     "releases",
		},
	}
}

func testEngine(repo *fakeRepo, confirm ConfirmFunc) (*Engine, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Engine{
		Repo:    repo,
		Config:  testConfig(),
		Logger:  logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelError, Output: io.Discard}),
		Confirm: confirm,
		Out:     out,
		Now:     func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) },
	}, out
}

func TestPrepareBumpsAndCommits(t *testing.T) {
	repo := newFakeRepo(t, "1.2.2", "1.2.3")
	require.NoError(t, os.WriteFile(filepath.Join(repo.path, "README.md"),
		[]byte("Version 1.2.3\n"), 0o644))

	engine, _ := testEngine(repo, nil)

	result, err := engine.Prepare(context.Background(), PrepareOptions{Bump: BumpMinor, Yes: true})
	require.NoError(t, err)

	assert.Equal(t, "1.3.0", result.Version)
	assert.Equal(t, "1.2.3", result.Previous)
	assert.Equal(t, "release/1.3.0", result.Branch)
	assert.Equal(t, []string{"release/1.3.0"}, repo.created)
	assert.Equal(t, []string{"README.md"}, result.ChangedFiles)
	assert.Equal(t, "chore(release): prepare 1.3.0", repo.commit)
	assert.True(t, result.Pushed)
	assert.Equal(t, []string{"release/1.3.0"}, repo.pushed)

	readme, err := os.ReadFile(filepath.Join(repo.path, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "Version 1.3.0\n", string(readme))

	changelog, err := os.ReadFile(filepath.Join(repo.path, "CHANGELOG.md"))
	require.NoError(t, err)
	assert.Contains(t, string(changelog), "## [1.3.0] - 2026-08-31")
	assert.Contains(t, string(changelog), "- feat: add widget")
}

func TestPrepareFirstRelease(t *testing.T) {
	repo := newFakeRepo(t)
	engine, _ := testEngine(repo, nil)

	result, err := engine.Prepare(context.Background(), PrepareOptions{Bump: BumpMajor, Yes: true})
	require.NoError(t, err)

	assert.Equal(t, "0.1.0", result.Version)
	assert.Empty(t, result.Previous)
}

func TestPrepareExplicitVersionMustAdvance(t *testing.T) {
	repo := newFakeRepo(t, "2.0.0")
	engine, _ := testEngine(repo, nil)

	_, err := engine.Prepare(context.Background(), PrepareOptions{Version: "1.9.0", Yes: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not after latest release")
}

func TestPrepareDirtyTreeDeclinedIsCancellation(t *testing.T) {
	repo := newFakeRepo(t, "1.0.0")
	repo.clean = false

	engine, _ := testEngine(repo, func(prompt string) bool { return false })

	_, err := engine.Prepare(context.Background(), PrepareOptions{Bump: BumpPatch})
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.Empty(t, repo.created)
}

func TestPrepareDryRunPerformsNoMutations(t *testing.T) {
	repo := newFakeRepo(t, "1.0.0")
	engine, out := testEngine(repo, nil)

	result, err := engine.Prepare(context.Background(), PrepareOptions{Bump: BumpPatch, DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Empty(t, repo.created)
	assert.Empty(t, repo.pushed)
	assert.Empty(t, repo.commit)
	assert.Contains(t, out.String(), "would create branch release/1.0.1")
	assert.NoFileExists(t, filepath.Join(repo.path, "CHANGELOG.md"))
}

func TestPrepareExistingBranch(t *testing.T) {
	repo := newFakeRepo(t, "1.0.0")
	repo.branches["release/1.0.1"] = true

	engine, _ := testEngine(repo, nil)

	_, err := engine.Prepare(context.Background(), PrepareOptions{Bump: BumpPatch, Yes: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBranchExists("release/1.0.1"))
}

func TestPrepareDeclinedPushIsNotAnError(t *testing.T) {
	repo := newFakeRepo(t, "1.0.0")
	engine, _ := testEngine(repo, func(prompt string) bool { return false })

	result, err := engine.Prepare(context.Background(), PrepareOptions{Bump: BumpPatch})
	require.NoError(t, err)
	assert.False(t, result.Pushed)
	assert.Empty(t, repo.pushed)
}

func TestFinishFullFlow(t *testing.T) {
	repo := newFakeRepo(t, "1.2.0", "1.3.0")
	repo.branches["release/1.3.0"] = true

	engine, _ := testEngine(repo, nil)
	engine.Host = &fakeHost{release: &githost.Release{
		URL:   "https://github.com/acme/falcon/releases/tag/v1.3.0",
		Notes: "Widget overhaul.",
	}}

	result, err := engine.Finish(context.Background(), FinishOptions{Version: "1.3.0", Yes: true})
	require.NoError(t, err)

	assert.True(t, result.BranchDeleted)
	assert.Equal(t, []string{"release/1.3.0"}, repo.deleted)
	assert.Equal(t, []string{"release/1.3.0"}, repo.remote)

	assert.True(t, result.MergedBack)
	assert.Equal(t, []string{"develop"}, repo.checked)
	assert.Equal(t, []string{"main"}, repo.merged)
	assert.Equal(t, []string{"develop"}, repo.pushed)

	content, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "# Release Report: 1.3.0")
	assert.Contains(t, text, "Widget overhaul.")
	assert.Contains(t, text, "feat: add widget")
}

func TestFinishSkipMergeBack(t *testing.T) {
	repo := newFakeRepo(t, "1.3.0")
	engine, _ := testEngine(repo, nil)

	result, err := engine.Finish(context.Background(), FinishOptions{Version: "1.3.0", SkipMergeBack: true, Yes: true})
	require.NoError(t, err)

	assert.False(t, result.MergedBack)
	assert.Empty(t, repo.merged)
	assert.NotEmpty(t, result.ReportPath)
}

func TestFinishRemoteDeleteFailureIsWarning(t *testing.T) {
	repo := newFakeRepo(t, "1.3.0")
	repo.branches["release/1.3.0"] = true
	repo.remoteErr = fmt.Errorf("remote rejected delete")

	engine, _ := testEngine(repo, nil)
	engine.Host = &fakeHost{err: fmt.Errorf("api unavailable")}

	result, err := engine.Finish(context.Background(), FinishOptions{Version: "1.3.0", Yes: true})
	require.NoError(t, err)

	assert.True(t, result.BranchDeleted)
	assert.Equal(t, []string{"release/1.3.0"}, repo.deleted)
	assert.Empty(t, repo.remote)
	assert.NotEmpty(t, result.ReportPath)
}

func TestFinishDeclineDeleteIsCancellation(t *testing.T) {
	repo := newFakeRepo(t, "1.3.0")
	repo.branches["release/1.3.0"] = true

	engine, _ := testEngine(repo, func(prompt string) bool { return false })

	_, err := engine.Finish(context.Background(), FinishOptions{Version: "1.3.0"})
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.Empty(t, repo.deleted)
}

func TestFinishDeclineMergeBackIsCancellation(t *testing.T) {
	repo := newFakeRepo(t, "1.3.0")
	repo.branches["release/1.3.0"] = true

	engine, _ := testEngine(repo, func(prompt string) bool {
		return strings.HasPrefix(prompt, "delete branch")
	})

	_, err := engine.Finish(context.Background(), FinishOptions{Version: "1.3.0"})
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.Equal(t, []string{"release/1.3.0"}, repo.deleted)
	assert.Empty(t, repo.merged)
	assert.Empty(t, repo.checked)
}

func TestFinishDryRun(t *testing.T) {
	repo := newFakeRepo(t, "1.3.0")
	repo.branches["release/1.3.0"] = true

	engine, out := testEngine(repo, nil)

	result, err := engine.Finish(context.Background(), FinishOptions{Version: "1.3.0", DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Empty(t, repo.deleted)
	assert.Empty(t, repo.merged)
	assert.Contains(t, out.String(), "would delete branch release/1.3.0")
	assert.Contains(t, out.String(), "would merge main back into develop")
}
