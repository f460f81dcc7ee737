package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/exec"
	"github.com/shipkit-io/shipkit/internal/githost"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage GitHub repository configuration",
}

var repoSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Apply repository settings and branch protection",
	Long: `Apply the opinionated repository baseline to GitHub: squash-only
merges, automatic head branch cleanup, security features (vulnerability
alerts, automated fixes, secret scanning with push protection, private
vulnerability reporting), and branch protection. The main branch requires
two approving reviews with code owner sign-off and the configured status
checks; the develop branch requires one review.

Examples:
  shipkit repo setup
  shipkit repo setup --main-only     # leave the develop branch unprotected
  shipkit repo setup --dry-run       # show the plan without applying it`,
	RunE: runRepoSetup,
}

var (
	repoMainOnly bool
	repoDryRun   bool
	repoYes      bool
)

func init() {
	rootCmd.AddCommand(repoCmd)
	repoCmd.AddCommand(repoSetupCmd)

	repoSetupCmd.Flags().BoolVar(&repoMainOnly, "main-only", false, "Only protect the main branch")
	repoSetupCmd.Flags().BoolVar(&repoDryRun, "dry-run", false, "Show what would be applied without calling GitHub")
	repoSetupCmd.Flags().BoolVarP(&repoYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runRepoSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"repo.owner and repo.name must be set before repo setup").
			WithRemediation("fill in the repo section of " + config.DefaultConfigFile)
	}

	cmd.SilenceUsage = true
	out := cmd.OutOrStdout()

	mainRule := githost.ProtectionRule{
		RequiredReviews:   2,
		RequireCodeOwners: true,
		RequiredChecks:    cfg.Repo.RequiredChecks,
		EnforceAdmins:     true,
	}
	developRule := githost.ProtectionRule{
		RequiredReviews: 1,
		RequiredChecks:  cfg.Repo.RequiredChecks,
	}

	fmt.Fprintf(out, "Repository setup plan for %s:\n", cfg.Repo.Slug())
	fmt.Fprintln(out, "  settings: squash-only merges, delete head branches on merge")
	fmt.Fprintln(out, "  security: vulnerability alerts, auto fixes, secret scanning, push protection")
	fmt.Fprintf(out, "  protect %s: %d review(s), code owners, checks %v, enforce for admins\n",
		cfg.Repo.MainBranch, mainRule.RequiredReviews, mainRule.RequiredChecks)
	if !repoMainOnly {
		fmt.Fprintf(out, "  protect %s: %d review(s), checks %v\n",
			cfg.Repo.DevelopBranch, developRule.RequiredReviews, developRule.RequiredChecks)
	}

	if repoDryRun {
		fmt.Fprintln(out, "dry run: nothing applied")
		return nil
	}

	if !repoYes && !confirm(cmd, "Apply these settings to "+cfg.Repo.Slug()+"?") {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	token, err := githost.ResolveToken(cmd.Context(), exec.NewRunner())
	if err != nil {
		return err
	}
	client := newRepoAdmin(token)

	if err := client.ConfigureRepo(cmd.Context(), cfg.Repo.Owner, cfg.Repo.Name, githost.DefaultRepoSettings()); err != nil {
		return err
	}
	logger.Info(cmd.Context(), "repository settings applied", "repo", cfg.Repo.Slug())

	// Security features depend on the plan and repo visibility; a refusal
	// should not abort the protection rules below.
	if err := client.EnableSecurityFeatures(cmd.Context(), cfg.Repo.Owner, cfg.Repo.Name); err != nil {
		logger.Warn(cmd.Context(), err, "could not enable every security feature")
		fmt.Fprintf(out, "  warning: %v\n", err)
	} else {
		logger.Info(cmd.Context(), "security features enabled", "repo", cfg.Repo.Slug())
	}

	if err := client.ProtectBranch(cmd.Context(), cfg.Repo.Owner, cfg.Repo.Name, cfg.Repo.MainBranch, mainRule); err != nil {
		return err
	}
	logger.Info(cmd.Context(), "branch protected", "branch", cfg.Repo.MainBranch)

	if !repoMainOnly {
		if err := client.ProtectBranch(cmd.Context(), cfg.Repo.Owner, cfg.Repo.Name, cfg.Repo.DevelopBranch, developRule); err != nil {
			return err
		}
		logger.Info(cmd.Context(), "branch protected", "branch", cfg.Repo.DevelopBranch)
	}

	fmt.Fprintf(out, "Repository %s configured.\n", cfg.Repo.Slug())
	fmt.Fprintln(out, "Run 'shipkit audit' to verify the security posture.")
	return nil
}

// newRepoAdmin is swapped out in tests.
var newRepoAdmin = func(token string) repoAdmin {
	return githost.NewClient(token)
}

type repoAdmin interface {
	ConfigureRepo(ctx context.Context, owner, repo string, settings githost.RepoSettings) error
	EnableSecurityFeatures(ctx context.Context, owner, repo string) error
	ProtectBranch(ctx context.Context, owner, repo, branch string, rule githost.ProtectionRule) error
}
