package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/exec"
	"github.com/shipkit-io/shipkit/internal/testrunner"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Inspect and enforce test coverage",
	Long: `Read the coverage data from the most recent xcodebuild test run
(the .xcresult bundle in the coverage directory), print the per-target
breakdown, and enforce the configured threshold.

Examples:
  shipkit coverage
  shipkit coverage --threshold 80
  shipkit coverage --output            # write coverage-report.{json,md}`,
	RunE: runCoverage,
}

var (
	coverageThreshold float64
	coverageFormat    string
	coverageOutput    bool
)

func init() {
	rootCmd.AddCommand(coverageCmd)

	coverageCmd.Flags().Float64Var(&coverageThreshold, "threshold", 0, "Minimum line coverage percent (default from .shipkit.yml)")
	coverageCmd.Flags().StringVarP(&coverageFormat, "format", "f", "table", "Output format (table|json)")
	coverageCmd.Flags().BoolVarP(&coverageOutput, "output", "o", false, "Write report files to the coverage directory")
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	threshold := coverageThreshold
	if threshold == 0 {
		threshold = cfg.Test.CoverageThreshold
	}

	cmd.SilenceUsage = true

	bundle := filepath.Join(cfg.Test.CoverageDir, "TestResults.xcresult")
	report, err := testrunner.LoadCoverage(cmd.Context(), exec.NewRunner(), bundle)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if coverageFormat == "json" {
		path, err := testrunner.WriteCoverageJSON(cfg.Test.CoverageDir, report)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Coverage JSON written to %s\n", path)
	} else {
		fmt.Fprintf(out, "Line coverage: %.1f%% (%d of %d lines)\n",
			report.Percent(), report.CoveredLines, report.ExecutableLines)
		for _, target := range report.Targets {
			fmt.Fprintf(out, "  %-30s %.1f%%\n", target.Name, target.LineCoverage*100)
		}
	}

	if coverageOutput {
		jsonPath, err := testrunner.WriteCoverageJSON(cfg.Test.CoverageDir, report)
		if err != nil {
			return err
		}
		mdPath, err := testrunner.WriteCoverageMarkdown(cfg.Test.CoverageDir, report, threshold)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Reports written to %s and %s\n", jsonPath, mdPath)
	}

	return testrunner.EnforceThreshold(report, threshold)
}
