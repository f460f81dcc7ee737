package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/exec"
	"github.com/shipkit-io/shipkit/internal/testrunner"
	"github.com/shipkit-io/shipkit/internal/watcher"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the test suite",
	Long: `Run the project's tests with the right tool for its kind: 'swift
test' for packages, 'xcodebuild test' for apps. Output is condensed to
per-test pass/fail lines. Coverage is collected unless --no-coverage is
set; for app targets the threshold from .shipkit.yml is enforced.

With --watch, shipkit re-runs the tests whenever a source file under the
configured watch paths changes.

Examples:
  shipkit test
  shipkit test --unit-only
  shipkit test --watch`,
	RunE: runTest,
}

var (
	testUnitOnly    bool
	testUIOnly      bool
	testPerformance bool
	testNoCoverage  bool
	testWatch       bool
)

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().BoolVar(&testUnitOnly, "unit-only", false, "Run only unit tests")
	testCmd.Flags().BoolVar(&testUIOnly, "ui-only", false, "Run only UI tests")
	testCmd.Flags().BoolVar(&testPerformance, "performance", false, "Include performance tests")
	testCmd.Flags().BoolVar(&testNoCoverage, "no-coverage", false, "Skip coverage collection")
	testCmd.Flags().BoolVarP(&testWatch, "watch", "w", false, "Re-run tests when source files change")
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	runner := exec.NewRunner()
	tests := &testrunner.TestRunner{
		Runner: runner,
		Config: cfg,
		Logger: logger,
		Out:    cmd.OutOrStdout(),
	}
	opts := testrunner.Options{
		UnitOnly:    testUnitOnly,
		UIOnly:      testUIOnly,
		Performance: testPerformance,
		NoCoverage:  testNoCoverage,
	}

	cmd.SilenceUsage = true

	if testWatch {
		return watchTests(cmd, cfg, tests, opts)
	}

	result, err := tests.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if !testNoCoverage && result.ResultBundle != "" {
		report, err := testrunner.LoadCoverage(cmd.Context(), runner, result.ResultBundle)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Coverage: %.1f%% (threshold %.0f%%)\n",
			report.Percent(), cfg.Test.CoverageThreshold)
		if err := testrunner.EnforceThreshold(report, cfg.Test.CoverageThreshold); err != nil {
			return err
		}
	}
	return nil
}

// watchTests runs the suite once, then again after every debounced batch
// of source changes, until interrupted.
func watchTests(cmd *cobra.Command, cfg *config.Config, tests *testrunner.TestRunner, opts testrunner.Options) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	runOnce := func() {
		if _, err := tests.Run(ctx, opts); err != nil {
			fmt.Fprintln(out, err)
		}
	}
	runOnce()

	w, err := watcher.New(500*time.Millisecond, logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	w.AddFilter(watcher.SourceFilter)
	w.AddFilter(watcher.NoBuildArtifactsFilter)
	for _, path := range cfg.Test.WatchPaths {
		if err := w.AddRecursive(path); err != nil {
			logger.Warn(ctx, err, "watch path unavailable", "path", path)
		}
	}
	w.AddHandler(func(events []watcher.ChangeEvent) error {
		fmt.Fprintf(out, "\n%d file(s) changed, re-running tests\n", len(events))
		runOnce()
		return nil
	})

	fmt.Fprintln(out, "Watching for changes (ctrl-c to stop)...")
	w.Start(ctx)
	<-ctx.Done()
	return nil
}
