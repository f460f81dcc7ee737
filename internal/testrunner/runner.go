// Package testrunner invokes swift test or xcodebuild test per project
// configuration, reformats their output, and turns xccov JSON into
// coverage reports.
package testrunner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/exec"
	"github.com/shipkit-io/shipkit/internal/logging"
)

// Options select which test slices run.
type Options struct {
	UnitOnly    bool
	UIOnly      bool
	Performance bool
	NoCoverage  bool
}

// RunResult reports the outcome of one test invocation.
type RunResult struct {
	Passed       bool
	Duration     time.Duration
	Command      string
	ResultBundle string // .xcresult path, app mode only
}

// TestRunner builds and runs the right test command for the project kind.
type TestRunner struct {
	Runner exec.Runner
	Config *config.Config
	Logger logging.Logger
	Out    io.Writer
}

// Run executes the tests once.
func (t *TestRunner) Run(ctx context.Context, opts Options) (*RunResult, error) {
	if opts.UnitOnly && opts.UIOnly {
		return nil, errors.NewValidationError(errors.ErrCodeConfigInvalid,
			"--unit-only and --ui-only are mutually exclusive")
	}

	name, args, bundle := t.command(opts)
	if _, ok := t.Runner.LookPath(name); !ok {
		return nil, errors.ErrToolMissing(name, "install Xcode or the Swift toolchain")
	}

	t.Logger.Info(ctx, "running tests", "command", name, "args", strings.Join(args, " "))

	start := time.Now()
	result, err := t.Runner.Run(ctx, name, args, exec.Options{Stream: false})
	if err != nil {
		return nil, errors.NewTestError(errors.ErrCodeTestFailed, "test run failed to execute", err)
	}

	formatter := NewFormatter(t.Out)
	formatter.Process(result.Stdout)
	if result.ExitCode != 0 {
		formatter.Process(result.Stderr)
	}
	formatter.Flush()

	run := &RunResult{
		Passed:       result.ExitCode == 0,
		Duration:     time.Since(start),
		Command:      name + " " + strings.Join(args, " "),
		ResultBundle: bundle,
	}

	if !run.Passed {
		return run, errors.NewTestError(errors.ErrCodeTestFailed,
			fmt.Sprintf("tests failed (exit %d)", result.ExitCode), nil)
	}
	return run, nil
}

// command assembles the invocation for the project kind.
func (t *TestRunner) command(opts Options) (name string, args []string, bundle string) {
	if t.Config.Project.Kind == "package" {
		return t.swiftCommand(opts)
	}
	return t.xcodebuildCommand(opts)
}

func (t *TestRunner) swiftCommand(opts Options) (string, []string, string) {
	args := []string{"test"}
	if !opts.NoCoverage {
		args = append(args, "--enable-code-coverage")
	}

	module := t.Config.Project.Scheme
	switch {
	case opts.UIOnly:
		args = append(args, "--filter", module+"UITests")
	case opts.Performance:
		// run everything including the performance suite
	default:
		args = append(args, "--skip", module+"Tests.PerformanceTests")
	}

	return "swift", args, ""
}

func (t *TestRunner) xcodebuildCommand(opts Options) (string, []string, string) {
	scheme := t.Config.Project.Scheme
	bundle := filepath.Join(t.Config.Test.CoverageDir, "TestResults.xcresult")

	args := []string{
		"test",
		"-scheme", scheme,
		"-destination", t.Config.Test.Destination,
		"-resultBundlePath", bundle,
	}
	if !opts.NoCoverage {
		args = append(args, "-enableCodeCoverage", "YES")
	}

	switch {
	case opts.UnitOnly:
		args = append(args, "-only-testing:"+scheme+"Tests")
	case opts.UIOnly:
		args = append(args, "-only-testing:"+scheme+"UITests")
	}
	if !opts.Performance && !opts.UIOnly {
		args = append(args, "-skip-testing:"+scheme+"Tests/PerformanceTests")
	}

	return "xcodebuild", args, bundle
}
