// Package cmd provides the shipkit command-line interface.
//
// Configuration resolves from multiple sources with clear precedence:
//  1. Command-line flags (--config, etc.) - highest priority
//  2. SHIPKIT_CONFIG_FILE environment variable - custom config file path
//  3. Individual environment variables (SHIPKIT_REPO_OWNER, etc.)
//  4. The .shipkit.yml configuration file - lowest priority
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shipkit-io/shipkit/internal/logging"
)

var (
	cfgFile string
	logger  logging.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shipkit",
	Short: "Bootstrap and maintain iOS/macOS app repositories",
	Long: `Shipkit bootstraps and maintains the repository around an iOS/macOS app:
environment validation, GitHub configuration, secrets sync, the release
flow, and test/coverage plumbing.

Quick Start:
  shipkit init                    Scaffold a new app repository
  shipkit doctor                  Diagnose tools, config, and git state
  shipkit repo setup              Apply repository settings and protection
  shipkit secrets sync            Upload .env secrets to GitHub Actions
  shipkit release prepare         Cut the next release branch
  shipkit test                    Run the test suite with coverage`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupt cancels the command context so watch loops and API calls unwind.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .shipkit.yml, can also use SHIPKIT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig wires viper to the config file and SHIPKIT_ environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SHIPKIT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".shipkit")
	}

	viper.SetEnvPrefix("SHIPKIT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine: init creates it, doctor reports it.
	viper.ReadInConfig()
}

func initLogger() {
	logger = logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(viper.GetString("log-level")),
		Format: viper.GetString("log-format"),
		Output: os.Stderr,
	})
}

// confirm asks a y/N question on the command's input stream. Anything but
// an explicit yes declines.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
