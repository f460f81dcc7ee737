package testrunner

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Formatter condenses raw swift/xcodebuild output into the lines a
// developer actually reads: per-test results, failures with location, and
// the final verdict. Build noise is dropped.
type Formatter struct {
	out      io.Writer
	passes   int
	failures int

	green *color.Color
	red   *color.Color
	dim   *color.Color
}

// NewFormatter creates a formatter writing to out.
func NewFormatter(out io.Writer) *Formatter {
	return &Formatter{
		out:   out,
		green: color.New(color.FgGreen),
		red:   color.New(color.FgRed),
		dim:   color.New(color.Faint),
	}
}

// Process reformats a chunk of tool output line by line.
func (f *Formatter) Process(output string) {
	for _, line := range strings.Split(output, "\n") {
		f.line(strings.TrimRight(line, "\r"))
	}
}

func (f *Formatter) line(line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return

	case strings.HasPrefix(trimmed, "Test Case") && strings.Contains(trimmed, " passed "):
		f.passes++
		fmt.Fprintf(f.out, "  %s %s\n", f.green.Sprint("✓"), testCaseName(trimmed))

	case strings.HasPrefix(trimmed, "Test Case") && strings.Contains(trimmed, " failed "):
		f.failures++
		fmt.Fprintf(f.out, "  %s %s\n", f.red.Sprint("✗"), testCaseName(trimmed))

	case strings.Contains(trimmed, "error:") || strings.Contains(trimmed, "XCTAssert"):
		fmt.Fprintf(f.out, "    %s\n", f.red.Sprint(trimmed))

	case strings.HasPrefix(trimmed, "Test Suite") && strings.Contains(trimmed, "started"):
		fmt.Fprintf(f.out, "%s\n", f.dim.Sprint(trimmed))

	case strings.Contains(trimmed, "** TEST SUCCEEDED **"),
		strings.Contains(trimmed, "** TEST FAILED **"):
		// replaced by Flush's own verdict
	}
}

// Flush prints the final tally.
func (f *Formatter) Flush() {
	total := f.passes + f.failures
	if total == 0 {
		return
	}
	if f.failures == 0 {
		fmt.Fprintf(f.out, "\n%s %d test(s) passed\n", f.green.Sprint("PASS"), f.passes)
	} else {
		fmt.Fprintf(f.out, "\n%s %d of %d test(s) failed\n", f.red.Sprint("FAIL"), f.failures, total)
	}
}

// Passes and Failures expose the tally for the caller's summary.
func (f *Formatter) Passes() int   { return f.passes }
func (f *Formatter) Failures() int { return f.failures }

// testCaseName extracts "SuiteName.testName" from an XCTest result line like
// "Test Case '-[FalconTests testGreet]' passed (0.001 seconds)."
func testCaseName(line string) string {
	start := strings.Index(line, "'")
	end := strings.LastIndex(line, "'")
	if start < 0 || end <= start {
		return line
	}

	name := line[start+1 : end]
	name = strings.TrimPrefix(name, "-[")
	name = strings.TrimSuffix(name, "]")
	return strings.ReplaceAll(name, " ", ".")
}
