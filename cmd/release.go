package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/exec"
	"github.com/shipkit-io/shipkit/internal/githost"
	"github.com/shipkit-io/shipkit/internal/gitrepo"
	"github.com/shipkit-io/shipkit/internal/release"
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Drive the release branch flow",
}

var releasePrepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Cut the next release branch",
	Long: `Compute the next version from existing tags, create the release
branch, rewrite version strings in the configured files, prepend a
changelog section from the commits since the last tag, commit, and
optionally push.

Examples:
  shipkit release prepare                  # patch bump
  shipkit release prepare --bump minor
  shipkit release prepare --version 2.0.0  # explicit version
  shipkit release prepare --dry-run`,
	RunE: runReleasePrepare,
}

var releaseFinishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Clean up after a published release",
	Long: `After the release PR is merged and the tag pushed: delete the
release branch locally and on the remote, merge the main branch back into
develop, and write a release report.

Examples:
  shipkit release finish --version 1.4.0
  shipkit release finish --version 1.4.0 --skip-merge-back`,
	RunE: runReleaseFinish,
}

var (
	releaseBump      string
	releaseVersion   string
	releaseDryRun    bool
	releaseYes       bool
	releaseSkipMerge bool
)

func init() {
	rootCmd.AddCommand(releaseCmd)
	releaseCmd.AddCommand(releasePrepareCmd)
	releaseCmd.AddCommand(releaseFinishCmd)

	releasePrepareCmd.Flags().StringVar(&releaseBump, "bump", "patch", "Version bump (patch|minor|major)")
	releasePrepareCmd.Flags().StringVar(&releaseVersion, "version", "", "Explicit version, overrides --bump")
	releasePrepareCmd.Flags().BoolVar(&releaseDryRun, "dry-run", false, "Show the plan without changing anything")
	releasePrepareCmd.Flags().BoolVarP(&releaseYes, "yes", "y", false, "Skip confirmation prompts")

	releaseFinishCmd.Flags().StringVar(&releaseVersion, "version", "", "Version being finished (required)")
	releaseFinishCmd.Flags().BoolVar(&releaseSkipMerge, "skip-merge-back", false, "Do not merge main back into develop")
	releaseFinishCmd.Flags().BoolVar(&releaseDryRun, "dry-run", false, "Show the plan without changing anything")
	releaseFinishCmd.Flags().BoolVarP(&releaseYes, "yes", "y", false, "Skip confirmation prompts")
	releaseFinishCmd.MarkFlagRequired("version")
}

func newReleaseEngine(cmd *cobra.Command) (*release.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	runner := exec.NewRunner()
	repo, err := gitrepo.Open(".", runner)
	if err != nil {
		return nil, err
	}

	engine := &release.Engine{
		Repo:    repo,
		Config:  cfg,
		Logger:  logger,
		Confirm: func(prompt string) bool { return confirm(cmd, prompt) },
		Out:     cmd.OutOrStdout(),
	}

	// The finish report enriches itself from the published GitHub release
	// when a token is around; everything else works offline.
	if token, err := githost.ResolveToken(cmd.Context(), runner); err == nil {
		engine.Host = githost.NewClient(token)
	}

	return engine, nil
}

func runReleasePrepare(cmd *cobra.Command, args []string) error {
	bump, err := release.ParseBump(releaseBump)
	if err != nil {
		return err
	}

	engine, err := newReleaseEngine(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	result, err := engine.Prepare(cmd.Context(), release.PrepareOptions{
		Bump:    bump,
		Version: releaseVersion,
		DryRun:  releaseDryRun,
		Yes:     releaseYes,
	})
	if errors.IsCancelled(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.DryRun {
		return nil
	}

	fmt.Fprintf(out, "Release branch %s is ready (%s -> %s).\n",
		result.Branch, orNone(result.Previous), result.Version)
	if result.Pushed {
		fmt.Fprintln(out, "Open a pull request into the main branch to publish it.")
	} else {
		fmt.Fprintf(out, "Push it with 'git push -u origin %s' when ready.\n", result.Branch)
	}
	return nil
}

func runReleaseFinish(cmd *cobra.Command, args []string) error {
	engine, err := newReleaseEngine(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	result, err := engine.Finish(cmd.Context(), release.FinishOptions{
		Version:       releaseVersion,
		SkipMergeBack: releaseSkipMerge,
		DryRun:        releaseDryRun,
		Yes:           releaseYes,
	})
	if errors.IsCancelled(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.DryRun {
		return nil
	}

	fmt.Fprintf(out, "Release %s finished.\n", result.Version)
	if result.ReportPath != "" {
		fmt.Fprintf(out, "Report written to %s\n", result.ReportPath)
	}
	return nil
}

func orNone(version string) string {
	if version == "" {
		return "none"
	}
	return version
}
