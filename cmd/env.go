package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/envfile"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Work with the local .env credentials file",
}

var envValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate that .env is complete and free of placeholders",
	Long: `Validate the local .env file against the required key list from
.shipkit.yml. A key fails validation when it is missing, empty, or still
carries a placeholder value copied from .env.template. Keys present in the
file but absent from the required list are reported as warnings only.

Examples:
  shipkit env validate
  shipkit env validate --file ci/.env`,
	RunE: runEnvValidate,
}

var envFilePath string

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.AddCommand(envValidateCmd)

	envValidateCmd.Flags().StringVar(&envFilePath, "file", "", "Env file to validate (default from .shipkit.yml)")
}

func runEnvValidate(cmd *cobra.Command, args []string) error {
	path := envFilePath
	requiredKeys := envfile.DefaultRequiredKeys

	if cfg, err := config.Load(); err == nil {
		if path == "" {
			path = cfg.Secrets.EnvFile
		}
		if len(cfg.Secrets.RequiredKeys) > 0 {
			requiredKeys = cfg.Secrets.RequiredKeys
		}
	}
	if path == "" {
		path = ".env"
	}

	env, err := envfile.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	issues := env.Validate(requiredKeys)

	errorCount := 0
	for _, issue := range issues {
		if issue.Warning {
			color.New(color.FgYellow).Fprintf(out, "  warn  %s\n", issue.String())
			continue
		}
		errorCount++
		color.New(color.FgRed).Fprintf(out, "  fail  %s\n", issue.String())
	}

	if errorCount > 0 {
		cmd.SilenceUsage = true
		return envfile.ValidationError(issues)
	}

	fmt.Fprintf(out, "%s is valid: all %d required key(s) are set\n", path, len(requiredKeys))
	return nil
}
