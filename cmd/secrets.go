package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/envfile"
	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/exec"
	"github.com/shipkit-io/shipkit/internal/githost"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Sync local credentials to GitHub Actions",
}

var secretsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload .env values as repository secrets and variables",
	Long: `Upload the values from the local .env file to GitHub Actions. Keys in
secrets.required_keys are sealed client-side and stored as repository
secrets; keys in secrets.variable_keys are stored as plain variables.
Keys present in .env but listed in neither group are skipped with a
warning.

The sync refuses to run while any required key is missing, empty, or
still a template placeholder: run 'shipkit env validate' first.

Examples:
  shipkit secrets sync
  shipkit secrets sync --dry-run     # show the plan without uploading
  shipkit secrets sync --yes         # skip the confirmation prompt
  shipkit secrets sync --variables-only`,
	RunE: runSecretsSync,
}

var (
	secretsDryRun   bool
	secretsYes      bool
	secretsVarsOnly bool
)

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsSyncCmd)

	secretsSyncCmd.Flags().BoolVar(&secretsDryRun, "dry-run", false, "Show what would be synced without uploading")
	secretsSyncCmd.Flags().BoolVarP(&secretsYes, "yes", "y", false, "Skip the confirmation prompt")
	secretsSyncCmd.Flags().BoolVar(&secretsVarsOnly, "variables-only", false, "Sync only plain variables, no secrets")
}

func runSecretsSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"repo.owner and repo.name must be set before syncing secrets").
			WithRemediation("fill in the repo section of " + config.DefaultConfigFile)
	}

	env, err := envfile.Load(cfg.Secrets.EnvFile)
	if err != nil {
		return err
	}

	requiredKeys := cfg.Secrets.RequiredKeys
	if len(requiredKeys) == 0 {
		requiredKeys = envfile.DefaultRequiredKeys
	}

	cmd.SilenceUsage = true

	// --variables-only skips both the secret upload and the placeholder
	// gate guarding it.
	if secretsVarsOnly {
		requiredKeys = nil
	} else if err := envfile.ValidationError(env.Validate(requiredKeys)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	variables := make(map[string]bool, len(cfg.Secrets.VariableKeys))
	for _, key := range cfg.Secrets.VariableKeys {
		variables[key] = true
	}
	known := make(map[string]bool, len(requiredKeys)+len(variables))
	for _, key := range requiredKeys {
		known[key] = true
	}

	fmt.Fprintf(out, "Syncing %s to %s\n", cfg.Secrets.EnvFile, cfg.Repo.Slug())
	for _, key := range requiredKeys {
		fmt.Fprintf(out, "  secret    %s\n", key)
	}
	for _, key := range cfg.Secrets.VariableKeys {
		if value, ok := env.Values[key]; !ok || value == "" {
			color.New(color.FgYellow).Fprintf(out, "  skip      %s (not set in %s)\n", key, cfg.Secrets.EnvFile)
			delete(variables, key)
			continue
		}
		known[key] = true
		fmt.Fprintf(out, "  variable  %s\n", key)
	}
	for _, key := range env.Keys() {
		if !known[key] {
			color.New(color.FgYellow).Fprintf(out, "  skip      %s (not in required_keys or variable_keys)\n", key)
		}
	}

	if secretsDryRun {
		fmt.Fprintln(out, "dry run: nothing uploaded")
		return nil
	}

	if !secretsYes && !confirm(cmd, fmt.Sprintf("Upload %d secret(s) and %d variable(s) to %s?",
		len(requiredKeys), len(variables), cfg.Repo.Slug())) {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	token, err := githost.ResolveToken(cmd.Context(), exec.NewRunner())
	if err != nil {
		return err
	}
	client := newHostClient(token)

	for _, key := range requiredKeys {
		if err := client.SetSecret(cmd.Context(), cfg.Repo.Owner, cfg.Repo.Name, key, env.Values[key]); err != nil {
			return err
		}
		logger.Info(cmd.Context(), "secret synced", "key", key)
	}
	for _, key := range cfg.Secrets.VariableKeys {
		if !variables[key] {
			continue
		}
		if err := client.SetVariable(cmd.Context(), cfg.Repo.Owner, cfg.Repo.Name, key, env.Values[key]); err != nil {
			return err
		}
		logger.Info(cmd.Context(), "variable synced", "key", key)
	}

	fmt.Fprintf(out, "Synced %d secret(s) and %d variable(s) to %s\n",
		len(requiredKeys), len(variables), cfg.Repo.Slug())
	return nil
}

// newHostClient is swapped out in tests.
var newHostClient = func(token string) hostClient {
	return githost.NewClient(token)
}

type hostClient interface {
	SetSecret(ctx context.Context, owner, repo, name, value string) error
	SetVariable(ctx context.Context, owner, repo, name, value string) error
}
