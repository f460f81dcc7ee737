package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wizard provides an interactive setup experience for new projects
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
	config *Config
}

// NewWizard creates a new configuration wizard reading from stdin
func NewWizard() *Wizard {
	return NewWizardWithIO(os.Stdin, os.Stdout)
}

// NewWizardWithIO creates a wizard with explicit streams, used by tests
func NewWizardWithIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
		config: &Config{},
	}
}

// Run executes the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "shipkit configuration wizard")
	fmt.Fprintln(w.out, "============================")
	fmt.Fprintln(w.out, "This wizard sets up .shipkit.yml for your repository.")
	fmt.Fprintln(w.out)

	if err := w.configureProject(); err != nil {
		return nil, fmt.Errorf("project configuration failed: %w", err)
	}

	if err := w.configureRepo(); err != nil {
		return nil, fmt.Errorf("repository configuration failed: %w", err)
	}

	if err := w.configureRelease(); err != nil {
		return nil, fmt.Errorf("release configuration failed: %w", err)
	}

	if err := w.configureTest(); err != nil {
		return nil, fmt.Errorf("test configuration failed: %w", err)
	}

	applyDefaults(w.config)

	if err := validateConfig(w.config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "✓ Configuration completed")
	return w.config, nil
}

func (w *Wizard) configureProject() error {
	fmt.Fprintln(w.out, "Project")
	fmt.Fprintln(w.out, "-------")

	w.config.Project.Name = w.askString("Project name", "Template Project")
	w.config.Project.Kind = w.askChoice("Project kind", []string{"app", "package"}, "package")
	w.config.Project.Scheme = w.askString("Xcode scheme", strings.ReplaceAll(w.config.Project.Name, " ", ""))

	if w.config.Project.Kind == "app" {
		w.config.Project.BundleID = w.askString("Bundle identifier", "com.example.app")
		w.config.Project.TeamID = w.askString("Apple development team ID", "")
	}

	fmt.Fprintln(w.out)
	return nil
}

func (w *Wizard) configureRepo() error {
	fmt.Fprintln(w.out, "Repository")
	fmt.Fprintln(w.out, "----------")

	w.config.Repo.Owner = w.askString("GitHub owner (user or org)", "")
	w.config.Repo.Name = w.askString("GitHub repository name", "")
	w.config.Repo.MainBranch = w.askString("Main branch", "main")
	w.config.Repo.DevelopBranch = w.askString("Develop branch", "develop")

	checks := []string{}
	for _, check := range []string{"test", "lint", "build"} {
		if w.askBool(fmt.Sprintf("Require status check %q before merge", check), check != "build") {
			checks = append(checks, check)
		}
	}
	w.config.Repo.RequiredChecks = checks

	fmt.Fprintln(w.out)
	return nil
}

func (w *Wizard) configureRelease() error {
	fmt.Fprintln(w.out, "Releases")
	fmt.Fprintln(w.out, "--------")

	w.config.Release.TagPrefix = w.askString("Tag prefix", "v")
	w.config.Release.ChangelogPath = w.askString("Changelog path", "CHANGELOG.md")

	fmt.Fprintln(w.out)
	return nil
}

func (w *Wizard) configureTest() error {
	fmt.Fprintln(w.out, "Testing")
	fmt.Fprintln(w.out, "-------")

	if w.config.Project.Kind == "app" {
		w.config.Test.Destination = w.askString("xcodebuild destination",
			"platform=iOS Simulator,name=iPhone 16")
	}

	threshold, err := w.askInt("Coverage threshold percent", 70, 0, 100)
	if err != nil {
		return err
	}
	w.config.Test.CoverageThreshold = float64(threshold)

	fmt.Fprintln(w.out)
	return nil
}

// Helper methods for user interaction

func (w *Wizard) askString(prompt, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, defaultValue)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}

	input, err := w.reader.ReadString('\n')
	if err != nil {
		return defaultValue
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}

	return input
}

func (w *Wizard) askInt(prompt string, defaultValue, min, max int) (int, error) {
	for {
		fmt.Fprintf(w.out, "%s [%d]: ", prompt, defaultValue)

		input, err := w.reader.ReadString('\n')
		if err != nil {
			return defaultValue, nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			return defaultValue, nil
		}

		value, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(w.out, "invalid number, enter a value between %d and %d\n", min, max)
			continue
		}

		if value < min || value > max {
			fmt.Fprintf(w.out, "out of range, enter a value between %d and %d\n", min, max)
			continue
		}

		return value, nil
	}
}

func (w *Wizard) askBool(prompt string, defaultValue bool) bool {
	defaultStr := "n"
	if defaultValue {
		defaultStr = "y"
	}

	fmt.Fprintf(w.out, "%s [%s]: ", prompt, defaultStr)

	input, err := w.reader.ReadString('\n')
	if err != nil {
		return defaultValue
	}

	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return defaultValue
	}

	return input == "y" || input == "yes" || input == "true"
}

func (w *Wizard) askChoice(prompt string, choices []string, defaultValue string) string {
	for {
		fmt.Fprintf(w.out, "%s [%s] (options: %s): ", prompt, defaultValue, strings.Join(choices, ", "))

		input, err := w.reader.ReadString('\n')
		if err != nil {
			return defaultValue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			return defaultValue
		}

		for _, choice := range choices {
			if strings.EqualFold(input, choice) {
				return choice
			}
		}

		fmt.Fprintf(w.out, "invalid choice, select from: %s\n", strings.Join(choices, ", "))
	}
}

// WriteConfigFile writes the configuration to a YAML file
func (w *Wizard) WriteConfigFile(filename string) error {
	if _, err := os.Stat(filename); err == nil {
		overwrite := w.askBool(fmt.Sprintf("Configuration file %s already exists. Overwrite", filename), false)
		if !overwrite {
			return fmt.Errorf("configuration file already exists")
		}
	}

	content, err := MarshalConfig(w.config)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, content, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(w.out, "✓ Configuration saved to %s\n", filename)
	return nil
}

// MarshalConfig renders a config as a commented YAML document.
func MarshalConfig(config *Config) ([]byte, error) {
	body, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}

	header := "# shipkit configuration file\n"
	return append([]byte(header), body...), nil
}
