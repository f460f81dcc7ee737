package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/shipkit-io/shipkit/internal/checks"
	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/envfile"
	"github.com/shipkit-io/shipkit/internal/exec"
	"github.com/shipkit-io/shipkit/internal/gitrepo"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose tools, configuration, and repository state",
	Long: `Diagnose the development environment for this repository. Checks:

- Tool availability (git, gh, swift, xcodebuild, bundle/fastlane)
- GitHub CLI authentication
- .shipkit.yml validity
- .env presence and placeholder state
- Git repository state

Examples:
  shipkit doctor                   # table with health score
  shipkit doctor --verbose         # include informational rows
  shipkit doctor --format json     # machine-readable output`,
	RunE: runDoctor,
}

var (
	doctorVerbose bool
	doctorFormat  string
)

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "v", false, "Show verbose diagnostic information")
	doctorCmd.Flags().StringVarP(&doctorFormat, "format", "f", "table", "Output format (table|json|yaml)")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	runner := exec.NewRunner()

	list := []checks.Check{
		toolCheck(runner, "git", "install git via Xcode command line tools"),
		ghAuthCheck(runner),
		toolCheck(runner, "swift", "install Xcode or the Swift toolchain"),
		optionalToolCheck(runner, "xcodebuild", "install Xcode (needed for app targets and coverage)"),
		fastlaneCheck(runner),
		configCheck(),
		envCheck(),
		gitStateCheck(runner),
	}

	report := checks.Run(cmd.Context(), "Environment diagnosis", list)
	report.Environment = map[string]string{
		"os":   runtime.GOOS,
		"arch": runtime.GOARCH,
	}

	out := cmd.OutOrStdout()
	switch doctorFormat {
	case "json":
		if err := checks.WriteJSON(out, report); err != nil {
			return err
		}
	case "yaml":
		if err := checks.WriteYAML(out, report); err != nil {
			return err
		}
	default:
		checks.WriteTable(out, report, doctorVerbose)
	}

	if report.Summary.HasFailures() {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d check(s) failed", report.Summary.Failed)
	}
	return nil
}

func toolCheck(runner exec.Runner, tool, suggestion string) checks.Check {
	return func(ctx context.Context) checks.Result {
		result := checks.Result{Name: tool, Category: "tools"}
		if path, ok := runner.LookPath(tool); ok {
			result.Status = checks.StatusPass
			result.Message = tool + " found at " + path
		} else {
			result.Status = checks.StatusFail
			result.Message = tool + " not found on PATH"
			result.Suggestion = suggestion
		}
		return result
	}
}

// optionalToolCheck warns instead of failing, for tools only some
// project kinds need.
func optionalToolCheck(runner exec.Runner, tool, suggestion string) checks.Check {
	return func(ctx context.Context) checks.Result {
		result := toolCheck(runner, tool, suggestion)(ctx)
		if result.Status == checks.StatusFail {
			result.Status = checks.StatusWarn
		}
		return result
	}
}

func ghAuthCheck(runner exec.Runner) checks.Check {
	return func(ctx context.Context) checks.Result {
		result := checks.Result{Name: "gh", Category: "tools"}

		if _, ok := runner.LookPath("gh"); !ok {
			result.Status = checks.StatusFail
			result.Message = "gh not found on PATH"
			result.Suggestion = "install the GitHub CLI (brew install gh)"
			return result
		}

		status, err := runner.Run(ctx, "gh", []string{"auth", "status"}, exec.Options{})
		if err != nil || status.ExitCode != 0 {
			result.Status = checks.StatusFail
			result.Message = "gh is installed but not authenticated"
			result.Suggestion = "run 'gh auth login'"
			return result
		}

		result.Status = checks.StatusPass
		result.Message = "gh is installed and authenticated"
		return result
	}
}

func fastlaneCheck(runner exec.Runner) checks.Check {
	return func(ctx context.Context) checks.Result {
		result := checks.Result{Name: "fastlane", Category: "tools"}

		if _, ok := runner.LookPath("fastlane"); ok {
			result.Status = checks.StatusPass
			result.Message = "fastlane found on PATH"
			return result
		}
		if _, ok := runner.LookPath("bundle"); ok {
			result.Status = checks.StatusPass
			result.Message = "bundler found; fastlane runs via 'bundle exec'"
			return result
		}

		result.Status = checks.StatusWarn
		result.Message = "neither fastlane nor bundler found"
		result.Suggestion = "gem install fastlane, or add it to the Gemfile and bundle install"
		return result
	}
}

func configCheck() checks.Check {
	return func(ctx context.Context) checks.Result {
		result := checks.Result{Name: "configuration", Category: "config"}

		if _, err := os.Stat(config.DefaultConfigFile); os.IsNotExist(err) {
			result.Status = checks.StatusWarn
			result.Message = config.DefaultConfigFile + " not found"
			result.Suggestion = "run 'shipkit init' or 'shipkit init --wizard'"
			return result
		}

		if _, err := config.Load(); err != nil {
			result.Status = checks.StatusFail
			result.Message = "configuration is invalid: " + err.Error()
			result.Suggestion = "fix " + config.DefaultConfigFile
			return result
		}

		result.Status = checks.StatusPass
		result.Message = config.DefaultConfigFile + " is valid"
		return result
	}
}

func envCheck() checks.Check {
	return func(ctx context.Context) checks.Result {
		result := checks.Result{Name: ".env", Category: "config"}

		env, err := envfile.Load(".env")
		if err != nil {
			result.Status = checks.StatusWarn
			result.Message = ".env not found"
			result.Suggestion = "copy .env.template to .env and fill in real values"
			return result
		}

		keys := envfile.DefaultRequiredKeys
		if cfg, err := config.Load(); err == nil && len(cfg.Secrets.RequiredKeys) > 0 {
			keys = cfg.Secrets.RequiredKeys
		}

		issues := env.Validate(keys)
		errorCount := 0
		for _, issue := range issues {
			if !issue.Warning {
				errorCount++
			}
		}

		if errorCount > 0 {
			result.Status = checks.StatusFail
			result.Message = fmt.Sprintf(".env has %d invalid or placeholder value(s)", errorCount)
			result.Suggestion = "run 'shipkit env validate' for details"
		} else {
			result.Status = checks.StatusPass
			result.Message = ".env is present and looks filled in"
		}
		return result
	}
}

func gitStateCheck(runner exec.Runner) checks.Check {
	return func(ctx context.Context) checks.Result {
		result := checks.Result{Name: "repository", Category: "git"}

		repo, err := gitrepo.Open(".", runner)
		if err != nil {
			result.Status = checks.StatusFail
			result.Message = "not a git repository"
			result.Suggestion = "run 'git init'"
			return result
		}

		clean, err := repo.IsClean()
		if err != nil {
			result.Status = checks.StatusWarn
			result.Message = "could not read worktree status: " + err.Error()
			return result
		}

		branch, _ := repo.CurrentBranch()
		if clean {
			result.Status = checks.StatusPass
			result.Message = "working tree clean on " + branch
		} else {
			result.Status = checks.StatusInfo
			result.Message = "uncommitted changes on " + branch
		}
		return result
	}
}
