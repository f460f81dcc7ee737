package testrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/exec"
)

// CoverageReport mirrors the JSON emitted by
// `xcrun xccov view --report --json`.
type CoverageReport struct {
	LineCoverage    float64          `json:"lineCoverage"`
	CoveredLines    int              `json:"coveredLines"`
	ExecutableLines int              `json:"executableLines"`
	Targets         []CoverageTarget `json:"targets"`
}

// CoverageTarget is per-target line coverage.
type CoverageTarget struct {
	Name            string         `json:"name"`
	LineCoverage    float64        `json:"lineCoverage"`
	CoveredLines    int            `json:"coveredLines"`
	ExecutableLines int            `json:"executableLines"`
	Files           []CoverageFile `json:"files"`
}

// CoverageFile is per-file line coverage within a target.
type CoverageFile struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	LineCoverage float64 `json:"lineCoverage"`
}

// Percent returns overall line coverage as a percentage.
func (r *CoverageReport) Percent() float64 {
	return r.LineCoverage * 100
}

// MeetsThreshold reports whether overall coverage reaches threshold percent.
func (r *CoverageReport) MeetsThreshold(threshold float64) bool {
	return r.Percent() >= threshold
}

// ParseCoverage decodes xccov JSON.
func ParseCoverage(data []byte) (*CoverageReport, error) {
	var report CoverageReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.NewTestError(errors.ErrCodeInternal, "failed to parse xccov JSON", err)
	}
	return &report, nil
}

// LoadCoverage extracts the coverage report from an .xcresult bundle via
// xcrun xccov.
func LoadCoverage(ctx context.Context, runner exec.Runner, xcresultPath string) (*CoverageReport, error) {
	if _, ok := runner.LookPath("xcrun"); !ok {
		return nil, errors.ErrToolMissing("xcrun", "install Xcode command line tools: xcode-select --install")
	}

	result, err := runner.Run(ctx, "xcrun",
		[]string{"xccov", "view", "--report", "--json", xcresultPath}, exec.Options{})
	if err != nil {
		return nil, errors.NewTestError(errors.ErrCodeInternal, "xccov invocation failed", err)
	}
	if result.ExitCode != 0 {
		return nil, errors.NewTestError(errors.ErrCodeInternal,
			"xccov exited with "+fmt.Sprint(result.ExitCode)+": "+strings.TrimSpace(result.Stderr), nil)
	}

	return ParseCoverage([]byte(result.Stdout))
}

// EnforceThreshold returns an error when coverage falls below threshold.
func EnforceThreshold(report *CoverageReport, threshold float64) error {
	if report.MeetsThreshold(threshold) {
		return nil
	}
	return errors.NewTestError(errors.ErrCodeCoverageBelow,
		fmt.Sprintf("line coverage %.1f%% is below the %.1f%% threshold",
			report.Percent(), threshold), nil).
		WithRemediation("add tests for the least covered targets, or lower test.coverage_threshold")
}

// WriteCoverageJSON writes the raw report under dir and returns the path.
func WriteCoverageJSON(dir string, report *CoverageReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewIOError(errors.ErrCodeInternal, "failed to create coverage directory", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInternal, "failed to encode coverage report", err)
	}

	path := filepath.Join(dir, "coverage-report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.NewIOError(errors.ErrCodeInternal, "failed to write coverage report", err)
	}
	return path, nil
}

// WriteCoverageMarkdown writes a per-target markdown table under dir,
// worst coverage first, and returns the path.
func WriteCoverageMarkdown(dir string, report *CoverageReport, threshold float64) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewIOError(errors.ErrCodeInternal, "failed to create coverage directory", err)
	}

	targets := make([]CoverageTarget, len(report.Targets))
	copy(targets, report.Targets)
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].LineCoverage < targets[j].LineCoverage
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# Coverage Report\n\n")
	fmt.Fprintf(&b, "Overall line coverage: **%.1f%%** (threshold %.1f%%)\n\n", report.Percent(), threshold)
	fmt.Fprintln(&b, "| Target | Coverage | Lines |")
	fmt.Fprintln(&b, "|---|---|---|")
	for _, target := range targets {
		fmt.Fprintf(&b, "| %s | %.1f%% | %d/%d |\n",
			target.Name, target.LineCoverage*100, target.CoveredLines, target.ExecutableLines)
	}

	if report.MeetsThreshold(threshold) {
		fmt.Fprintf(&b, "\nStatus: ✅ above threshold\n")
	} else {
		fmt.Fprintf(&b, "\nStatus: ❌ below threshold\n")
	}

	path := filepath.Join(dir, "coverage-report.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.NewIOError(errors.ErrCodeInternal, "failed to write coverage report", err)
	}
	return path, nil
}
