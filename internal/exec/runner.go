// Package exec wraps external developer tools (git, gh, swift, xcodebuild,
// bundle) behind a stub-friendly runner interface.
package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// Result holds the outcome of a command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Options holds optional parameters for command execution.
type Options struct {
	Dir    string            // working directory
	Env    map[string]string // extra environment variables (overlay)
	Stream bool              // mirror output to the terminal while capturing
}

// Runner is the interface for running external commands.
// Implementations must be safe for stubbing in tests.
type Runner interface {
	// Run executes a command and returns the result.
	// A non-zero exit is reported through Result.ExitCode, not error;
	// error is reserved for execution failures (binary not found,
	// context cancelled, I/O failure).
	Run(ctx context.Context, name string, args []string, opts Options) (Result, error)

	// LookPath reports whether the named binary is on PATH and where.
	LookPath(name string) (string, bool)
}

// OSRunner is the production Runner backed by os/exec.
type OSRunner struct{}

// NewRunner creates the production runner.
func NewRunner() *OSRunner {
	return &OSRunner{}
}

// Run executes the command and captures stdout/stderr.
func (r *OSRunner) Run(ctx context.Context, name string, args []string, opts Options) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	if opts.Stream {
		cmd.Stdout = newTeeWriter(&stdout, os.Stdout)
		cmd.Stderr = newTeeWriter(&stderr, os.Stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}

	if len(opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// LookPath reports whether the named binary is available.
func (r *OSRunner) LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}
