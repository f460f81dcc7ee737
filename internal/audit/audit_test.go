package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipkit-io/shipkit/internal/checks"
	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/githost"
)

type fakeHost struct {
	security         githost.RepoSecurity
	protections      map[string]githost.BranchProtection
	signedCommits    bool
	privateReporting bool
}

func (f *fakeHost) GetRepoSecurity(ctx context.Context, owner, repo string) (githost.RepoSecurity, error) {
	return f.security, nil
}

func (f *fakeHost) GetBranchProtection(ctx context.Context, owner, repo, branch string) (githost.BranchProtection, error) {
	return f.protections[branch], nil
}

func (f *fakeHost) RequiresSignedCommits(ctx context.Context, owner, repo, branch string) (bool, error) {
	return f.signedCommits, nil
}

func (f *fakeHost) PrivateVulnerabilityReportingEnabled(ctx context.Context, owner, repo string) (bool, error) {
	return f.privateReporting, nil
}

func auditConfig() *config.Config {
	return &config.Config{
		Repo: config.RepoConfig{
			Owner:          "acme",
			Name:           "falcon",
			MainBranch:     "main",
			DevelopBranch:  "develop",
			RequiredChecks: []string{"test", "lint"},
		},
	}
}

func hardenedHost() *fakeHost {
	return &fakeHost{
		security: githost.RepoSecurity{
			Private:                true,
			DefaultBranch:          "main",
			SecretScanning:         true,
			PushProtection:         true,
			VulnerabilityAlerts:    true,
			AutomatedSecurityFixes: true,
		},
		protections: map[string]githost.BranchProtection{
			"main": {
				Protected:         true,
				RequiredReviews:   2,
				RequireCodeOwners: true,
				RequiredChecks:    []string{"test", "lint"},
			},
			"develop": {
				Protected:       true,
				RequiredReviews: 1,
			},
		},
		signedCommits:    true,
		privateReporting: true,
	}
}

func writePolicyFiles(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".github"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "SECURITY.md"), []byte("# Security"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".github", "CODEOWNERS"), []byte("* @acme/ios"), 0o644))
}

func resultByName(t *testing.T, report *checks.Report, name string) checks.Result {
	t.Helper()
	for _, result := range report.Results {
		if result.Name == name {
			return result
		}
	}
	t.Fatalf("no result named %q", name)
	return checks.Result{}
}

func TestAuditHardenedRepoScoresExcellent(t *testing.T) {
	root := t.TempDir()
	writePolicyFiles(t, root)

	auditor := &Auditor{Host: hardenedHost(), Config: auditConfig(), Root: root}

	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, report.Summary.Total, report.Summary.Passed)
	assert.False(t, report.Summary.HasFailures())
	assert.Equal(t, float64(100), report.Summary.Score())
	assert.Equal(t, "Excellent", report.Summary.Rating())
}

func TestAuditUnprotectedBranchFails(t *testing.T) {
	host := hardenedHost()
	host.protections["main"] = githost.BranchProtection{}

	root := t.TempDir()
	writePolicyFiles(t, root)

	auditor := &Auditor{Host: host, Config: auditConfig(), Root: root}
	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	result := resultByName(t, report, "Branch protection: main")
	assert.Equal(t, checks.StatusFail, result.Status)
	assert.Contains(t, result.Suggestion, "shipkit repo setup")
	assert.True(t, report.Summary.HasFailures())
}

func TestAuditWeakReviewCountWarns(t *testing.T) {
	host := hardenedHost()
	protection := host.protections["main"]
	protection.RequiredReviews = 1
	host.protections["main"] = protection

	root := t.TempDir()
	writePolicyFiles(t, root)

	auditor := &Auditor{Host: host, Config: auditConfig(), Root: root}
	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	result := resultByName(t, report, "Branch protection: main")
	assert.Equal(t, checks.StatusWarn, result.Status)
	// warnings alone never fail the audit
	assert.False(t, report.Summary.HasFailures())
}

func TestAuditMissingStatusCheckWarns(t *testing.T) {
	host := hardenedHost()
	protection := host.protections["main"]
	protection.RequiredChecks = []string{"test"}
	host.protections["main"] = protection

	root := t.TempDir()
	writePolicyFiles(t, root)

	auditor := &Auditor{Host: host, Config: auditConfig(), Root: root}
	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	result := resultByName(t, report, "Required status checks: main")
	assert.Equal(t, checks.StatusWarn, result.Status)
	assert.Contains(t, result.Message, "lint")
}

func TestAuditMissingPolicyFiles(t *testing.T) {
	auditor := &Auditor{Host: hardenedHost(), Config: auditConfig(), Root: t.TempDir()}

	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, checks.StatusFail, resultByName(t, report, "SECURITY.md").Status)
	assert.Equal(t, checks.StatusFail, resultByName(t, report, "CODEOWNERS").Status)
}

func TestAuditDisabledScanningFails(t *testing.T) {
	host := hardenedHost()
	host.security.SecretScanning = false
	host.security.PushProtection = false

	root := t.TempDir()
	writePolicyFiles(t, root)

	auditor := &Auditor{Host: host, Config: auditConfig(), Root: root}
	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, checks.StatusFail, resultByName(t, report, "Secret scanning").Status)
	assert.Equal(t, checks.StatusFail, resultByName(t, report, "Push protection").Status)
}

func TestAuditIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writePolicyFiles(t, root)

	auditor := &Auditor{Host: hardenedHost(), Config: auditConfig(), Root: root}

	first, err := auditor.Run(context.Background())
	require.NoError(t, err)
	second, err := auditor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Results, second.Results)
}

func TestSaveReport(t *testing.T) {
	root := t.TempDir()
	writePolicyFiles(t, root)

	auditor := &Auditor{Host: hardenedHost(), Config: auditConfig(), Root: root}
	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	date := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	path, err := SaveReport(filepath.Join(root, "reports"), report, date)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "reports", "security-audit-2026-08-31.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Security audit: acme/falcon")
}
