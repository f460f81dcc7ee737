package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shipkit-io/shipkit/internal/config"
	"github.com/shipkit-io/shipkit/internal/scaffold"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Scaffold a new iOS/macOS app repository",
	Long: `Initialize a repository with the shipkit layout: docs, environment
templates, fastlane stubs, a buildable SwiftPM skeleton, and .shipkit.yml.

Existing files are left alone unless --force is given; a pre-existing .env
is never overwritten.

Examples:
  shipkit init                               # scaffold into the current directory
  shipkit init MyApp --name "My App"         # scaffold into ./MyApp
  shipkit init --template library            # Swift package without app extras
  shipkit init --wizard                      # interactive .shipkit.yml setup`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initName     string
	initTemplate string
	initMinimal  bool
	initBundleID string
	initWizard   bool
	initForce    bool
	initFrom     string
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initName, "name", "", "Project display name (default \""+scaffold.DefaultProjectName+"\")")
	initCmd.Flags().StringVarP(&initTemplate, "template", "t", scaffold.TemplateApp, "Scaffold template (app|library|minimal)")
	initCmd.Flags().BoolVar(&initMinimal, "minimal", false, "Shorthand for --template minimal")
	initCmd.Flags().StringVar(&initBundleID, "bundle-id", "", "Bundle identifier (default derived from the name)")
	initCmd.Flags().BoolVar(&initWizard, "wizard", false, "Configure .shipkit.yml interactively")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files (.env is still preserved)")
	initCmd.Flags().StringVar(&initFrom, "from", "", "Copy an additional template tree over the scaffold")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if initMinimal {
		initTemplate = scaffold.TemplateMinimal
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	out := cmd.OutOrStdout()

	generator := scaffold.NewGenerator(dir, logger)
	result, err := generator.Generate(cmd.Context(), scaffold.Options{
		ProjectName: initName,
		BundleID:    initBundleID,
		Template:    initTemplate,
		Force:       initForce,
		CustomDir:   initFrom,
	})
	if err != nil {
		return err
	}

	for _, name := range result.Created {
		fmt.Fprintf(out, "  created %s\n", name)
	}
	for _, name := range result.Skipped {
		fmt.Fprintf(out, "  skipped %s (exists)\n", name)
	}

	if err := writeInitConfig(cmd, dir); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Repository initialized. Next steps:")
	fmt.Fprintln(out, "  1. Fill in .env with real credentials")
	fmt.Fprintln(out, "  2. shipkit doctor")
	fmt.Fprintln(out, "  3. shipkit repo setup && shipkit secrets sync")
	return nil
}

// writeInitConfig creates .shipkit.yml, interactively when --wizard is set.
func writeInitConfig(cmd *cobra.Command, dir string) error {
	path := filepath.Join(dir, config.DefaultConfigFile)

	if initWizard {
		wizard := config.NewWizardWithIO(cmd.InOrStdin(), cmd.OutOrStdout())
		if _, err := wizard.Run(); err != nil {
			return err
		}
		return wizard.WriteConfigFile(path)
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s (exists)\n", config.DefaultConfigFile)
		return nil
	}

	name := initName
	if name == "" {
		name = scaffold.DefaultProjectName
	}

	content, err := config.MarshalConfig(defaultInitConfig(name))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.DefaultConfigFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  created %s\n", config.DefaultConfigFile)
	return nil
}

func defaultInitConfig(name string) *config.Config {
	module := scaffold.ModuleName(name)

	kind := "app"
	if initTemplate == scaffold.TemplateLibrary {
		kind = "package"
	}

	bundleID := initBundleID
	if bundleID == "" {
		bundleID = "com.example." + strings.ToLower(module)
	}

	return &config.Config{
		Project: config.ProjectConfig{
			Name:     name,
			Kind:     kind,
			Scheme:   module,
			BundleID: bundleID,
		},
		Repo: config.RepoConfig{
			MainBranch:     "main",
			DevelopBranch:  "develop",
			RequiredChecks: []string{"test"},
		},
		Release: config.ReleaseConfig{
			TagPrefix:     "v",
			ChangelogPath: "CHANGELOG.md",
			VersionFiles:  []string{"README.md"},
			ReportDir:     "releases",
		},
		Test: config.TestConfig{
			Destination:       "platform=iOS Simulator,name=iPhone 16",
			CoverageThreshold: 70,
			CoverageDir:       "coverage-output",
			WatchPaths:        []string{"Sources", "Tests"},
		},
		Secrets: config.SecretsConfig{
			EnvFile:      ".env",
			RequiredKeys: nil, // envfile.DefaultRequiredKeys applies
		},
	}
}
