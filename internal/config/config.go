// Package config provides configuration management for shipkit using Viper
// for flexible loading from files, environment variables, and command-line
// flags.
//
// The configuration system supports YAML files, environment variable
// overrides with the SHIPKIT_ prefix, validation, and defaults. It manages
// project identity (name, scheme, bundle id), repository coordinates and
// branch names, release settings, test/coverage settings, and the secret
// key lists synced to GitHub Actions.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFile is the config file shipkit looks for in the project root.
const DefaultConfigFile = ".shipkit.yml"

type Config struct {
	Project ProjectConfig `yaml:"project" mapstructure:"project"`
	Repo    RepoConfig    `yaml:"repo" mapstructure:"repo"`
	Release ReleaseConfig `yaml:"release" mapstructure:"release"`
	Test    TestConfig    `yaml:"test" mapstructure:"test"`
	Secrets SecretsConfig `yaml:"secrets" mapstructure:"secrets"`
}

// ProjectConfig identifies the Xcode project or Swift package being managed.
type ProjectConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Kind     string `yaml:"kind" mapstructure:"kind"` // "app" or "package"
	Scheme   string `yaml:"scheme" mapstructure:"scheme"`
	BundleID string `yaml:"bundle_id" mapstructure:"bundle_id"`
	TeamID   string `yaml:"team_id" mapstructure:"team_id"`
}

// RepoConfig holds GitHub coordinates and the branch model.
type RepoConfig struct {
	Owner          string   `yaml:"owner" mapstructure:"owner"`
	Name           string   `yaml:"name" mapstructure:"name"`
	MainBranch     string   `yaml:"main_branch" mapstructure:"main_branch"`
	DevelopBranch  string   `yaml:"develop_branch" mapstructure:"develop_branch"`
	RequiredChecks []string `yaml:"required_checks" mapstructure:"required_checks"`
}

// ReleaseConfig controls the prepare/finish release flow.
type ReleaseConfig struct {
	TagPrefix     string   `yaml:"tag_prefix" mapstructure:"tag_prefix"`
	ChangelogPath string   `yaml:"changelog_path" mapstructure:"changelog_path"`
	VersionFiles  []string `yaml:"version_files" mapstructure:"version_files"`
	ReportDir     string   `yaml:"report_dir" mapstructure:"report_dir"`
}

// TestConfig controls swift test / xcodebuild invocation and coverage.
type TestConfig struct {
	Destination       string   `yaml:"destination" mapstructure:"destination"`
	CoverageThreshold float64  `yaml:"coverage_threshold" mapstructure:"coverage_threshold"`
	CoverageDir       string   `yaml:"coverage_dir" mapstructure:"coverage_dir"`
	WatchPaths        []string `yaml:"watch_paths" mapstructure:"watch_paths"`
}

// SecretsConfig lists the env keys synced as secrets and plain variables.
type SecretsConfig struct {
	EnvFile      string   `yaml:"env_file" mapstructure:"env_file"`
	RequiredKeys []string `yaml:"required_keys" mapstructure:"required_keys"`
	VariableKeys []string `yaml:"variable_keys" mapstructure:"variable_keys"`
}

// Slug returns "owner/name" for display and API calls.
func (r RepoConfig) Slug() string {
	return r.Owner + "/" + r.Name
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Viper's Unmarshal does not see keys set only through viper.Set for
	// slices; read those explicitly.
	if viper.IsSet("repo.required_checks") && len(config.Repo.RequiredChecks) == 0 {
		config.Repo.RequiredChecks = viper.GetStringSlice("repo.required_checks")
	}
	if viper.IsSet("release.version_files") && len(config.Release.VersionFiles) == 0 {
		config.Release.VersionFiles = viper.GetStringSlice("release.version_files")
	}
	if viper.IsSet("secrets.required_keys") && len(config.Secrets.RequiredKeys) == 0 {
		config.Secrets.RequiredKeys = viper.GetStringSlice("secrets.required_keys")
	}
	if viper.IsSet("secrets.variable_keys") && len(config.Secrets.VariableKeys) == 0 {
		config.Secrets.VariableKeys = viper.GetStringSlice("secrets.variable_keys")
	}
	if viper.IsSet("test.watch_paths") && len(config.Test.WatchPaths) == 0 {
		config.Test.WatchPaths = viper.GetStringSlice("test.watch_paths")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Project.Kind == "" {
		config.Project.Kind = "package"
	}
	if config.Project.Scheme == "" {
		config.Project.Scheme = config.Project.Name
	}

	if config.Repo.MainBranch == "" {
		config.Repo.MainBranch = "main"
	}
	if config.Repo.DevelopBranch == "" {
		config.Repo.DevelopBranch = "develop"
	}
	if len(config.Repo.RequiredChecks) == 0 {
		config.Repo.RequiredChecks = []string{"test", "lint"}
	}

	if config.Release.TagPrefix == "" {
		config.Release.TagPrefix = "v"
	}
	if config.Release.ChangelogPath == "" {
		config.Release.ChangelogPath = "CHANGELOG.md"
	}
	if config.Release.ReportDir == "" {
		config.Release.ReportDir = "releases"
	}

	if config.Test.Destination == "" {
		config.Test.Destination = "platform=iOS Simulator,name=iPhone 16"
	}
	if config.Test.CoverageThreshold == 0 {
		config.Test.CoverageThreshold = 70
	}
	if config.Test.CoverageDir == "" {
		config.Test.CoverageDir = "coverage-output"
	}
	if len(config.Test.WatchPaths) == 0 {
		config.Test.WatchPaths = []string{"Sources", "Tests"}
	}

	if config.Secrets.EnvFile == "" {
		config.Secrets.EnvFile = ".env"
	}
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validateProjectConfig(&config.Project); err != nil {
		return fmt.Errorf("project config: %w", err)
	}

	if err := validateRepoConfig(&config.Repo); err != nil {
		return fmt.Errorf("repo config: %w", err)
	}

	if err := validateReleaseConfig(&config.Release); err != nil {
		return fmt.Errorf("release config: %w", err)
	}

	if err := validateTestConfig(&config.Test); err != nil {
		return fmt.Errorf("test config: %w", err)
	}

	return nil
}

func validateProjectConfig(config *ProjectConfig) error {
	switch config.Kind {
	case "app", "package":
	default:
		return fmt.Errorf("kind must be \"app\" or \"package\", got %q", config.Kind)
	}

	return nil
}

func validateRepoConfig(config *RepoConfig) error {
	for _, branch := range []string{config.MainBranch, config.DevelopBranch} {
		if err := validateBranchName(branch); err != nil {
			return err
		}
	}

	if config.MainBranch == config.DevelopBranch {
		return fmt.Errorf("main_branch and develop_branch must differ, both are %q", config.MainBranch)
	}

	return nil
}

func validateReleaseConfig(config *ReleaseConfig) error {
	for _, path := range append([]string{config.ChangelogPath, config.ReportDir}, config.VersionFiles...) {
		if err := validatePath(path); err != nil {
			return err
		}
	}

	return nil
}

func validateTestConfig(config *TestConfig) error {
	if config.CoverageThreshold < 0 || config.CoverageThreshold > 100 {
		return fmt.Errorf("coverage_threshold %.1f is not in valid range 0-100", config.CoverageThreshold)
	}

	if err := validatePath(config.CoverageDir); err != nil {
		return err
	}

	return nil
}

func validateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name is empty")
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " ", ".."}
	for _, char := range dangerousChars {
		if strings.Contains(branch, char) {
			return fmt.Errorf("branch name %q contains invalid character: %s", branch, char)
		}
	}

	return nil
}

// validatePath validates a configured file path for safety
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path should be relative to the project root: %s", path)
	}

	return nil
}
