package testrunner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/exec"
	"github.com/shipkit-io/shipkit/internal/logging"
)

// stubRunner records invocations and plays back canned results.
type stubRunner struct {
	name     string
	args     []string
	stdout   string
	stderr   string
	exitCode int
	missing  map[string]bool
}

func (s *stubRunner) Run(ctx context.Context, name string, args []string, opts exec.Options) (exec.Result, error) {
	s.name = name
	s.args = args
	return exec.Result{Stdout: s.stdout, Stderr: s.stderr, ExitCode: s.exitCode}, nil
}

func (s *stubRunner) LookPath(name string) (string, bool) {
	if s.missing[name] {
		return "", false
	}
	return "/usr/bin/" + name, true
}

func packageConfig() *config.Config {
	return &config.Config{
		Project: config.ProjectConfig{Name: "Falcon", Kind: "package", Scheme: "Falcon"},
		Test:    config.TestConfig{CoverageDir: "coverage-output"},
	}
}

func appConfig() *config.Config {
	cfg := packageConfig()
	cfg.Project.Kind = "app"
	cfg.Test.Destination = "platform=iOS Simulator,name=iPhone 16"
	return cfg
}

func newTestRunner(cfg *config.Config, stub *stubRunner) *TestRunner {
	return &TestRunner{
		Runner: stub,
		Config: cfg,
		Logger: logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelError, Output: io.Discard}),
		Out:    &bytes.Buffer{},
	}
}

func TestRunPackageMode(t *testing.T) {
	stub := &stubRunner{stdout: "Test Case '-[FalconTests testGreet]' passed (0.001 seconds)."}
	runner := newTestRunner(packageConfig(), stub)

	result, err := runner.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, "swift", stub.name)
	assert.Contains(t, stub.args, "test")
	assert.Contains(t, stub.args, "--enable-code-coverage")
	assert.Contains(t, stub.args, "--skip")
	assert.Empty(t, result.ResultBundle)
}

func TestRunPackageModeNoCoverage(t *testing.T) {
	stub := &stubRunner{}
	runner := newTestRunner(packageConfig(), stub)

	_, err := runner.Run(context.Background(), Options{NoCoverage: true})
	require.NoError(t, err)
	assert.NotContains(t, stub.args, "--enable-code-coverage")
}

func TestRunAppMode(t *testing.T) {
	stub := &stubRunner{}
	runner := newTestRunner(appConfig(), stub)

	result, err := runner.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "xcodebuild", stub.name)
	joined := strings.Join(stub.args, " ")
	assert.Contains(t, joined, "-scheme Falcon")
	assert.Contains(t, joined, "-destination platform=iOS Simulator,name=iPhone 16")
	assert.Contains(t, joined, "-enableCodeCoverage YES")
	assert.Contains(t, joined, "-skip-testing:FalconTests/PerformanceTests")
	assert.Contains(t, result.ResultBundle, "TestResults.xcresult")
}

func TestRunAppModeUnitOnly(t *testing.T) {
	stub := &stubRunner{}
	runner := newTestRunner(appConfig(), stub)

	_, err := runner.Run(context.Background(), Options{UnitOnly: true})
	require.NoError(t, err)
	assert.Contains(t, stub.args, "-only-testing:FalconTests")
}

func TestRunAppModeUIOnly(t *testing.T) {
	stub := &stubRunner{}
	runner := newTestRunner(appConfig(), stub)

	_, err := runner.Run(context.Background(), Options{UIOnly: true})
	require.NoError(t, err)
	assert.Contains(t, stub.args, "-only-testing:FalconUITests")
	assert.NotContains(t, strings.Join(stub.args, " "), "-skip-testing")
}

func TestRunPerformanceIncluded(t *testing.T) {
	stub := &stubRunner{}
	runner := newTestRunner(appConfig(), stub)

	_, err := runner.Run(context.Background(), Options{Performance: true})
	require.NoError(t, err)
	assert.NotContains(t, strings.Join(stub.args, " "), "-skip-testing")
}

func TestRunConflictingFlags(t *testing.T) {
	runner := newTestRunner(appConfig(), &stubRunner{})

	_, err := runner.Run(context.Background(), Options{UnitOnly: true, UIOnly: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestRunMissingTool(t *testing.T) {
	stub := &stubRunner{missing: map[string]bool{"xcodebuild": true}}
	runner := newTestRunner(appConfig(), stub)

	_, err := runner.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xcodebuild")
}

func TestRunFailureSetsError(t *testing.T) {
	stub := &stubRunner{
		exitCode: 65,
		stdout:   "Test Case '-[FalconTests testGreet]' failed (0.004 seconds).",
	}
	runner := newTestRunner(packageConfig(), stub)

	result, err := runner.Run(context.Background(), Options{})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Passed)
}
