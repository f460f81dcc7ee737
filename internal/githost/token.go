package githost

import (
	"context"
	"os"
	"strings"

	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/exec"
)

// ResolveToken finds a GitHub API token. Environment variables win over
// the gh CLI so CI can inject credentials without a gh installation.
func ResolveToken(ctx context.Context, runner exec.Runner) (string, error) {
	for _, name := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if token := strings.TrimSpace(os.Getenv(name)); token != "" {
			return token, nil
		}
	}

	if _, ok := runner.LookPath("gh"); ok {
		result, err := runner.Run(ctx, "gh", []string{"auth", "token"}, exec.Options{})
		if err == nil && result.ExitCode == 0 {
			if token := strings.TrimSpace(result.Stdout); token != "" {
				return token, nil
			}
		}
	}

	return "", errors.NewAuthError(errors.ErrCodeNotAuthenticated, "no GitHub token available").
		WithRemediation("set GITHUB_TOKEN, or run 'gh auth login'")
}
