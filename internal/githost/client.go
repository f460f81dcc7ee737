package githost

import (
	"context"
	"net/http"

	"github.com/google/go-github/v75/github"

	"github.com/shipkit-io/shipkit/internal/errors"
)

// Client wraps the GitHub REST API for the repository operations shipkit
// performs: repository settings, branch protection, Actions secrets and
// variables, and the security posture reads backing the audit command.
type Client struct {
	gh *github.Client
}

// NewClient creates a token-authenticated GitHub client.
func NewClient(token string) *Client {
	return &Client{gh: github.NewClient(http.DefaultClient).WithAuthToken(token)}
}

// newFromGitHub wires a prebuilt go-github client, used by tests to point
// at a local test server.
func newFromGitHub(gh *github.Client) *Client {
	return &Client{gh: gh}
}

// RepoSettings are the repository-level options applied by repo setup.
type RepoSettings struct {
	DeleteBranchOnMerge bool
	AllowSquashMerge    bool
	AllowMergeCommit    bool
	AllowRebaseMerge    bool
	HasIssues           bool
	HasWiki             bool
	HasProjects         bool
}

// DefaultRepoSettings is the opinionated baseline: squash-only merges and
// automatic head branch cleanup.
func DefaultRepoSettings() RepoSettings {
	return RepoSettings{
		DeleteBranchOnMerge: true,
		AllowSquashMerge:    true,
		AllowMergeCommit:    false,
		AllowRebaseMerge:    false,
		HasIssues:           true,
		HasWiki:             false,
		HasProjects:         false,
	}
}

// ConfigureRepo applies repository settings.
func (c *Client) ConfigureRepo(ctx context.Context, owner, repo string, settings RepoSettings) error {
	_, _, err := c.gh.Repositories.Edit(ctx, owner, repo, &github.Repository{
		DeleteBranchOnMerge: github.Ptr(settings.DeleteBranchOnMerge),
		AllowSquashMerge:    github.Ptr(settings.AllowSquashMerge),
		AllowMergeCommit:    github.Ptr(settings.AllowMergeCommit),
		AllowRebaseMerge:    github.Ptr(settings.AllowRebaseMerge),
		HasIssues:           github.Ptr(settings.HasIssues),
		HasWiki:             github.Ptr(settings.HasWiki),
		HasProjects:         github.Ptr(settings.HasProjects),
	})
	if err != nil {
		return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to update repository settings", err)
	}
	return nil
}

// ProtectionRule describes the branch protection applied to a branch.
type ProtectionRule struct {
	RequiredReviews   int
	RequireCodeOwners bool
	RequiredChecks    []string
	EnforceAdmins     bool
}

// ProtectBranch installs or replaces the protection rule for branch.
func (c *Client) ProtectBranch(ctx context.Context, owner, repo, branch string, rule ProtectionRule) error {
	request := &github.ProtectionRequest{
		RequiredPullRequestReviews: &github.PullRequestReviewsEnforcementRequest{
			RequiredApprovingReviewCount: rule.RequiredReviews,
			RequireCodeOwnerReviews:      rule.RequireCodeOwners,
			DismissStaleReviews:          true,
		},
		EnforceAdmins: rule.EnforceAdmins,
	}
	if len(rule.RequiredChecks) > 0 {
		checks := make([]*github.RequiredStatusCheck, 0, len(rule.RequiredChecks))
		for _, name := range rule.RequiredChecks {
			checks = append(checks, &github.RequiredStatusCheck{Context: name})
		}
		request.RequiredStatusChecks = &github.RequiredStatusChecks{
			Strict: true,
			Checks: &checks,
		}
	}

	_, _, err := c.gh.Repositories.UpdateBranchProtection(ctx, owner, repo, branch, request)
	if err != nil {
		return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to protect branch "+branch, err)
	}
	return nil
}

// BranchProtection is the subset of a protection rule the audit inspects.
type BranchProtection struct {
	Protected         bool
	RequiredReviews   int
	RequireCodeOwners bool
	RequiredChecks    []string
	EnforceAdmins     bool
}

// GetBranchProtection reads the protection rule for branch. An unprotected
// branch yields Protected=false rather than an error.
func (c *Client) GetBranchProtection(ctx context.Context, owner, repo, branch string) (BranchProtection, error) {
	protection, resp, err := c.gh.Repositories.GetBranchProtection(ctx, owner, repo, branch)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return BranchProtection{}, nil
		}
		return BranchProtection{}, errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to read protection for branch "+branch, err)
	}

	result := BranchProtection{Protected: true}
	if reviews := protection.GetRequiredPullRequestReviews(); reviews != nil {
		result.RequiredReviews = reviews.RequiredApprovingReviewCount
		result.RequireCodeOwners = reviews.RequireCodeOwnerReviews
	}
	if checks := protection.GetRequiredStatusChecks(); checks != nil && checks.Checks != nil {
		for _, check := range *checks.Checks {
			result.RequiredChecks = append(result.RequiredChecks, check.Context)
		}
	}
	if admins := protection.GetEnforceAdmins(); admins != nil {
		result.EnforceAdmins = admins.Enabled
	}
	return result, nil
}

// RepoSecurity is the security posture snapshot consumed by the audit.
type RepoSecurity struct {
	Private                bool
	DefaultBranch          string
	DeleteBranchOnMerge    bool
	SecretScanning         bool
	PushProtection         bool
	VulnerabilityAlerts    bool
	AutomatedSecurityFixes bool
}

// GetRepoSecurity collects the repository's security-relevant settings.
func (c *Client) GetRepoSecurity(ctx context.Context, owner, repo string) (RepoSecurity, error) {
	repository, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return RepoSecurity{}, errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to read repository "+owner+"/"+repo, err)
	}

	security := RepoSecurity{
		Private:             repository.GetPrivate(),
		DefaultBranch:       repository.GetDefaultBranch(),
		DeleteBranchOnMerge: repository.GetDeleteBranchOnMerge(),
	}
	if analysis := repository.GetSecurityAndAnalysis(); analysis != nil {
		if scanning := analysis.GetSecretScanning(); scanning != nil {
			security.SecretScanning = scanning.GetStatus() == "enabled"
		}
		if push := analysis.GetSecretScanningPushProtection(); push != nil {
			security.PushProtection = push.GetStatus() == "enabled"
		}
	}

	// Both endpoints 404 for repos where the feature was never toggled;
	// treat that as disabled instead of failing the whole audit.
	if alerts, resp, err := c.gh.Repositories.GetVulnerabilityAlerts(ctx, owner, repo); err == nil {
		security.VulnerabilityAlerts = alerts
	} else if resp == nil || resp.StatusCode != http.StatusNotFound {
		return RepoSecurity{}, errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to read vulnerability alerts", err)
	}
	if fixes, resp, err := c.gh.Repositories.GetAutomatedSecurityFixes(ctx, owner, repo); err == nil {
		security.AutomatedSecurityFixes = fixes.GetEnabled()
	} else if resp == nil || resp.StatusCode != http.StatusNotFound {
		return RepoSecurity{}, errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to read automated security fixes", err)
	}

	return security, nil
}

// EnableSecurityFeatures turns on vulnerability alerts, automated security
// fixes, secret scanning with push protection, and private vulnerability
// reporting. Errors from features unavailable on the plan are returned so
// the caller can downgrade them to warnings.
func (c *Client) EnableSecurityFeatures(ctx context.Context, owner, repo string) error {
	if _, err := c.gh.Repositories.EnableVulnerabilityAlerts(ctx, owner, repo); err != nil {
		return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to enable vulnerability alerts", err)
	}
	if _, err := c.gh.Repositories.EnableAutomatedSecurityFixes(ctx, owner, repo); err != nil {
		return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to enable automated security fixes", err)
	}

	enabled := github.Ptr("enabled")
	_, _, err := c.gh.Repositories.Edit(ctx, owner, repo, &github.Repository{
		SecurityAndAnalysis: &github.SecurityAndAnalysis{
			SecretScanning:               &github.SecretScanning{Status: enabled},
			SecretScanningPushProtection: &github.SecretScanningPushProtection{Status: enabled},
		},
	})
	if err != nil {
		return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to enable secret scanning", err)
	}

	if _, err := c.gh.Repositories.EnablePrivateReporting(ctx, owner, repo); err != nil {
		return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to enable private vulnerability reporting", err)
	}
	return nil
}

// RequiresSignedCommits reports whether branch enforces commit signatures.
func (c *Client) RequiresSignedCommits(ctx context.Context, owner, repo, branch string) (bool, error) {
	signatures, resp, err := c.gh.Repositories.GetSignaturesProtectedBranch(ctx, owner, repo, branch)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to read signature requirement for branch "+branch, err)
	}
	return signatures.GetEnabled(), nil
}

// PrivateVulnerabilityReportingEnabled reports whether the repository
// accepts private vulnerability reports.
func (c *Client) PrivateVulnerabilityReportingEnabled(ctx context.Context, owner, repo string) (bool, error) {
	enabled, resp, err := c.gh.Repositories.IsPrivateReportingEnabled(ctx, owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to read private vulnerability reporting", err)
	}
	return enabled, nil
}
