package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/shipkit-io/shipkit/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show shipkit version and build information",
	RunE:  runVersion,
}

var (
	versionShort  bool
	versionFormat string
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text|json|yaml)")
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if versionShort {
		fmt.Fprintln(out, version.GetShortVersion())
		return nil
	}

	info := version.GetBuildInfo()

	switch versionFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case "yaml":
		data, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
		return nil
	default:
		fmt.Fprintf(out, "shipkit %s\n", info.Version)
		fmt.Fprintf(out, "  commit:   %s\n", info.GitCommit)
		if !info.BuildTime.IsZero() {
			fmt.Fprintf(out, "  built:    %s\n", info.BuildTime.Format("2006-01-02 15:04:05 MST"))
		}
		fmt.Fprintf(out, "  go:       %s\n", info.GoVersion)
		fmt.Fprintf(out, "  platform: %s\n", info.Platform)
		return nil
	}
}
