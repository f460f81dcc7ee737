// Package checks implements the check-then-report engine shared by the
// doctor and audit commands: independent boolean checks are classified as
// pass/warn/fail, tallied into a summary, scored, and rendered as a table,
// JSON, YAML, or markdown.
package checks

import (
	"context"
	"time"
)

// Status classifies the outcome of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
	StatusInfo Status = "info"
)

// Result represents the result of a single check
type Result struct {
	Name       string                 `json:"name" yaml:"name"`
	Category   string                 `json:"category" yaml:"category"`
	Status     Status                 `json:"status" yaml:"status"`
	Message    string                 `json:"message" yaml:"message"`
	Suggestion string                 `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// Report represents a complete check run
type Report struct {
	Title       string            `json:"title" yaml:"title"`
	Timestamp   time.Time         `json:"timestamp" yaml:"timestamp"`
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Results     []Result          `json:"results" yaml:"results"`
	Summary     Summary           `json:"summary" yaml:"summary"`
}

// Summary provides an overview of check results
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Passed   int `json:"passed" yaml:"passed"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Failed   int `json:"failed" yaml:"failed"`
	Info     int `json:"info" yaml:"info"`
}

// Check is a single predicate producing a Result. Checks are independent:
// no ordering dependency, no retry, no partial-failure recovery.
type Check func(ctx context.Context) Result

// Run executes all checks in order and assembles a report.
func Run(ctx context.Context, title string, checks []Check) *Report {
	report := &Report{
		Title:     title,
		Timestamp: time.Now(),
		Results:   make([]Result, 0, len(checks)),
	}

	for _, check := range checks {
		report.Results = append(report.Results, check(ctx))
	}

	report.Summary = Summarize(report.Results)

	return report
}

// Summarize tallies results into counters.
func Summarize(results []Result) Summary {
	summary := Summary{Total: len(results)}

	for _, result := range results {
		switch result.Status {
		case StatusPass:
			summary.Passed++
		case StatusWarn:
			summary.Warnings++
		case StatusFail:
			summary.Failed++
		case StatusInfo:
			summary.Info++
		}
	}

	return summary
}

// Score returns the pass percentage over scored checks (info excluded).
// An empty run scores 100.
func (s Summary) Score() float64 {
	scored := s.Passed + s.Warnings + s.Failed
	if scored == 0 {
		return 100
	}

	return float64(s.Passed) / float64(scored) * 100
}

// Rating buckets the score into a qualitative label.
func (s Summary) Rating() string {
	score := s.Score()
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Moderate"
	default:
		return "Needs improvement"
	}
}

// HasFailures reports whether any hard failure occurred. Warnings never
// count as failures.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}
