package checks

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v2"
)

var (
	passGlyph = color.New(color.FgGreen).Sprint("✓")
	warnGlyph = color.New(color.FgYellow).Sprint("!")
	failGlyph = color.New(color.FgRed).Sprint("✗")
	infoGlyph = color.New(color.FgCyan).Sprint("·")
)

func glyph(status Status) string {
	switch status {
	case StatusPass:
		return passGlyph
	case StatusWarn:
		return warnGlyph
	case StatusFail:
		return failGlyph
	default:
		return infoGlyph
	}
}

// WriteTable renders the report as human-readable terminal output.
// Info results are hidden unless verbose is set.
func WriteTable(w io.Writer, report *Report, verbose bool) {
	fmt.Fprintln(w, report.Title)
	fmt.Fprintln(w, strings.Repeat("=", len(report.Title)))
	fmt.Fprintln(w)

	for _, result := range report.Results {
		if result.Status == StatusInfo && !verbose {
			continue
		}

		fmt.Fprintf(w, "%s [%s] %s: %s\n",
			glyph(result.Status), strings.ToUpper(result.Category), result.Name, result.Message)

		if result.Suggestion != "" {
			fmt.Fprintf(w, "  → %s\n", result.Suggestion)
		}

		if verbose && len(result.Details) > 0 {
			fmt.Fprintf(w, "  details: %+v\n", result.Details)
		}
	}

	fmt.Fprintln(w)
	WriteSummary(w, report.Summary)
}

// WriteSummary renders counters, score, and rating.
func WriteSummary(w io.Writer, summary Summary) {
	fmt.Fprintf(w, "Total checks: %d\n", summary.Total)
	fmt.Fprintf(w, "%s Passed:   %d\n", passGlyph, summary.Passed)
	fmt.Fprintf(w, "%s Warnings: %d\n", warnGlyph, summary.Warnings)
	fmt.Fprintf(w, "%s Failed:   %d\n", failGlyph, summary.Failed)
	if summary.Info > 0 {
		fmt.Fprintf(w, "%s Info:     %d\n", infoGlyph, summary.Info)
	}

	fmt.Fprintf(w, "\nScore: %.0f%% (%s)\n", summary.Score(), summary.Rating())
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, report *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// WriteYAML renders the report as YAML.
func WriteYAML(w io.Writer, report *Report) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(report)
}

// WriteMarkdown renders the report as a markdown document suitable for
// committing alongside the repository.
func WriteMarkdown(w io.Writer, report *Report) {
	fmt.Fprintf(w, "# %s\n\n", report.Title)
	fmt.Fprintf(w, "Generated: %s\n\n", report.Timestamp.Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintln(w, "| Status | Category | Check | Result |")
	fmt.Fprintln(w, "|---|---|---|---|")

	for _, result := range report.Results {
		marker := map[Status]string{
			StatusPass: "✅",
			StatusWarn: "⚠️",
			StatusFail: "❌",
			StatusInfo: "ℹ️",
		}[result.Status]

		fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
			marker, result.Category, result.Name, result.Message)
	}

	fmt.Fprintf(w, "\n## Summary\n\n")
	fmt.Fprintf(w, "- Passed: %d\n", report.Summary.Passed)
	fmt.Fprintf(w, "- Warnings: %d\n", report.Summary.Warnings)
	fmt.Fprintf(w, "- Failed: %d\n", report.Summary.Failed)
	fmt.Fprintf(w, "- Score: %.0f%% (%s)\n", report.Summary.Score(), report.Summary.Rating())
}
