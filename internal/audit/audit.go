// Package audit runs read-only security checks against a GitHub repository
// and the local working tree, scoring the results with the shared check
// engine.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shipkit-io/shipkit/internal/checks"
	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/githost"
)

// Host is the read-only slice of the GitHub API the audit consumes.
// *githost.Client satisfies it.
type Host interface {
	GetRepoSecurity(ctx context.Context, owner, repo string) (githost.RepoSecurity, error)
	GetBranchProtection(ctx context.Context, owner, repo, branch string) (githost.BranchProtection, error)
	RequiresSignedCommits(ctx context.Context, owner, repo, branch string) (bool, error)
	PrivateVulnerabilityReportingEnabled(ctx context.Context, owner, repo string) (bool, error)
}

// Auditor audits one repository.
type Auditor struct {
	Host   Host
	Config *config.Config
	Root   string // working tree root for local file checks
}

// Run performs every audit check and returns the scored report. API state
// is fetched up front so a slow connection fails fast instead of mid-table.
func (a *Auditor) Run(ctx context.Context) (*checks.Report, error) {
	owner, repo := a.Config.Repo.Owner, a.Config.Repo.Name

	security, err := a.Host.GetRepoSecurity(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	main := a.Config.Repo.MainBranch
	develop := a.Config.Repo.DevelopBranch

	mainProtection, err := a.Host.GetBranchProtection(ctx, owner, repo, main)
	if err != nil {
		return nil, err
	}
	developProtection, err := a.Host.GetBranchProtection(ctx, owner, repo, develop)
	if err != nil {
		return nil, err
	}

	signedCommits, err := a.Host.RequiresSignedCommits(ctx, owner, repo, main)
	if err != nil {
		return nil, err
	}
	privateReporting, err := a.Host.PrivateVulnerabilityReportingEnabled(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	var list []checks.Check
	add := func(result checks.Result) {
		list = append(list, func(context.Context) checks.Result { return result })
	}

	add(a.branchProtectionCheck(main, mainProtection, 2))
	add(a.codeOwnerReviewCheck(main, mainProtection))
	add(a.statusChecksCheck(main, mainProtection))
	add(a.branchProtectionCheck(develop, developProtection, 1))

	add(boolCheck("Secret scanning", "scanning", security.SecretScanning,
		"secret scanning is enabled", "secret scanning is disabled",
		"enable secret scanning in the repository security settings"))
	add(boolCheck("Push protection", "scanning", security.PushProtection,
		"push protection is enabled", "push protection is disabled",
		"enable secret scanning push protection"))
	add(boolCheck("Vulnerability alerts", "dependencies", security.VulnerabilityAlerts,
		"Dependabot alerts are enabled", "Dependabot alerts are disabled",
		"enable Dependabot alerts"))
	add(boolCheck("Automated security fixes", "dependencies", security.AutomatedSecurityFixes,
		"Dependabot security updates are enabled", "Dependabot security updates are disabled",
		"enable Dependabot security updates"))

	add(checks.Result{
		Name:     "Signed commits",
		Category: "policy",
		Status:   statusFor(signedCommits, checks.StatusWarn),
		Message:  signedMessage(signedCommits, main),
		Suggestion: suggestionUnless(signedCommits,
			"require signed commits on "+main),
	})
	add(boolCheck("Private vulnerability reporting", "policy", privateReporting,
		"private vulnerability reporting is enabled", "private vulnerability reporting is disabled",
		"enable private vulnerability reporting"))

	add(a.localFileCheck("SECURITY.md", "policy",
		[]string{"SECURITY.md", ".github/SECURITY.md", "docs/SECURITY.md"},
		"add a SECURITY.md describing how to report vulnerabilities"))
	add(a.localFileCheck("CODEOWNERS", "policy",
		[]string{"CODEOWNERS", ".github/CODEOWNERS", "docs/CODEOWNERS"},
		"add a CODEOWNERS file so reviews route to the right people"))

	report := checks.Run(ctx, "Security audit: "+a.Config.Repo.Slug(), list)
	report.Environment = map[string]string{
		"repository":     a.Config.Repo.Slug(),
		"default_branch": security.DefaultBranch,
	}
	return report, nil
}

func (a *Auditor) branchProtectionCheck(branch string, protection githost.BranchProtection, wantReviews int) checks.Result {
	result := checks.Result{
		Name:     "Branch protection: " + branch,
		Category: "branches",
	}

	switch {
	case !protection.Protected:
		result.Status = checks.StatusFail
		result.Message = branch + " is not protected"
		result.Suggestion = "run 'shipkit repo setup' to install protection rules"
	case protection.RequiredReviews < wantReviews:
		result.Status = checks.StatusWarn
		result.Message = fmt.Sprintf("%s requires %d review(s), expected %d",
			branch, protection.RequiredReviews, wantReviews)
		result.Suggestion = fmt.Sprintf("raise required reviews on %s to %d", branch, wantReviews)
	default:
		result.Status = checks.StatusPass
		result.Message = fmt.Sprintf("%s is protected with %d required review(s)",
			branch, protection.RequiredReviews)
	}
	return result
}

func (a *Auditor) codeOwnerReviewCheck(branch string, protection githost.BranchProtection) checks.Result {
	result := checks.Result{
		Name:     "Code owner reviews: " + branch,
		Category: "branches",
	}
	if protection.Protected && protection.RequireCodeOwners {
		result.Status = checks.StatusPass
		result.Message = branch + " requires code owner reviews"
	} else {
		result.Status = checks.StatusWarn
		result.Message = branch + " does not require code owner reviews"
		result.Suggestion = "require code owner reviews on " + branch
	}
	return result
}

func (a *Auditor) statusChecksCheck(branch string, protection githost.BranchProtection) checks.Result {
	result := checks.Result{
		Name:     "Required status checks: " + branch,
		Category: "branches",
	}

	missing := missingChecks(a.Config.Repo.RequiredChecks, protection.RequiredChecks)
	switch {
	case !protection.Protected || len(protection.RequiredChecks) == 0:
		result.Status = checks.StatusFail
		result.Message = branch + " has no required status checks"
		result.Suggestion = "require the CI checks before merging"
	case len(missing) > 0:
		result.Status = checks.StatusWarn
		result.Message = fmt.Sprintf("%s is missing required check(s): %v", branch, missing)
		result.Suggestion = "add the missing checks to the protection rule"
	default:
		result.Status = checks.StatusPass
		result.Message = fmt.Sprintf("%s requires %d status check(s)", branch, len(protection.RequiredChecks))
	}
	return result
}

func (a *Auditor) localFileCheck(name, category string, candidates []string, suggestion string) checks.Result {
	for _, candidate := range candidates {
		if info, err := os.Stat(filepath.Join(a.Root, candidate)); err == nil && !info.IsDir() {
			return checks.Result{
				Name:     name,
				Category: category,
				Status:   checks.StatusPass,
				Message:  candidate + " is present",
			}
		}
	}
	return checks.Result{
		Name:       name,
		Category:   category,
		Status:     checks.StatusFail,
		Message:    name + " not found",
		Suggestion: suggestion,
	}
}

func boolCheck(name, category string, ok bool, passMsg, failMsg, suggestion string) checks.Result {
	result := checks.Result{Name: name, Category: category}
	if ok {
		result.Status = checks.StatusPass
		result.Message = passMsg
	} else {
		result.Status = checks.StatusFail
		result.Message = failMsg
		result.Suggestion = suggestion
	}
	return result
}

func statusFor(ok bool, downgraded checks.Status) checks.Status {
	if ok {
		return checks.StatusPass
	}
	return downgraded
}

func signedMessage(ok bool, branch string) string {
	if ok {
		return branch + " requires signed commits"
	}
	return branch + " does not require signed commits"
}

func suggestionUnless(ok bool, suggestion string) string {
	if ok {
		return ""
	}
	return suggestion
}

func missingChecks(expected, actual []string) []string {
	present := make(map[string]bool, len(actual))
	for _, name := range actual {
		present[name] = true
	}

	var missing []string
	for _, name := range expected {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// SaveReport writes the markdown audit report as
// security-audit-<date>.md under dir and returns the path.
func SaveReport(dir string, report *checks.Report, date time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewIOError(errors.ErrCodeInternal, "failed to create report directory", err)
	}

	path := filepath.Join(dir, "security-audit-"+date.Format("2006-01-02")+".md")
	file, err := os.Create(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeInternal, "failed to create audit report", err)
	}
	defer file.Close()

	checks.WriteMarkdown(file, report)
	return path, nil
}
