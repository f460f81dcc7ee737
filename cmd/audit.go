package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shipkit-io/shipkit/internal/audit"
	"github.com/shipkit-io/shipkit/internal/checks"
	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/exec"
	"github.com/shipkit-io/shipkit/internal/githost"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the repository's security posture",
	Long: `Audit the GitHub repository against the hardening baseline: branch
protection on main and develop, required status checks, secret scanning
with push protection, vulnerability alerts, signed commits, private
vulnerability reporting, and the local SECURITY.md and CODEOWNERS files.

Each finding scores pass, warn, or fail; warnings lower the score but
only fail the audit under --strict.

Examples:
  shipkit audit
  shipkit audit --report             # also write security-audit-<date>.md
  shipkit audit --format json`,
	RunE: runAudit,
}

var (
	auditReport  bool
	auditFormat  string
	auditVerbose bool
	auditStrict  bool
)

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().BoolVar(&auditReport, "report", false, "Write a markdown report to the report directory")
	auditCmd.Flags().StringVarP(&auditFormat, "format", "f", "table", "Output format (table|json|yaml)")
	auditCmd.Flags().BoolVarP(&auditVerbose, "verbose", "v", false, "Show passing rows and details")
	auditCmd.Flags().BoolVar(&auditStrict, "strict", false, "Treat warnings as failures")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"repo.owner and repo.name must be set before auditing").
			WithRemediation("fill in the repo section of " + config.DefaultConfigFile)
	}

	cmd.SilenceUsage = true

	token, err := githost.ResolveToken(cmd.Context(), exec.NewRunner())
	if err != nil {
		return err
	}

	auditor := &audit.Auditor{
		Host:   newAuditHost(token),
		Config: cfg,
		Root:   ".",
	}

	report, err := auditor.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch auditFormat {
	case "json":
		if err := checks.WriteJSON(out, report); err != nil {
			return err
		}
	case "yaml":
		if err := checks.WriteYAML(out, report); err != nil {
			return err
		}
	default:
		checks.WriteTable(out, report, auditVerbose)
	}

	if auditReport {
		path, err := audit.SaveReport(cfg.Release.ReportDir, report, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", path)
	}

	if report.Summary.HasFailures() {
		return fmt.Errorf("%d security check(s) failed", report.Summary.Failed)
	}
	if auditStrict && report.Summary.Warnings > 0 {
		return fmt.Errorf("%d warning(s) with --strict", report.Summary.Warnings)
	}
	return nil
}

// newAuditHost is swapped out in tests.
var newAuditHost = func(token string) audit.Host {
	return githost.NewClient(token)
}
