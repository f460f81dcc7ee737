// Package envfile loads and validates the .env file holding the Apple and
// Fastlane credentials a bootstrapped repository needs. Validation rejects
// values that still carry template placeholder text.
package envfile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/subosito/gotenv"

	"github.com/shipkit-io/shipkit/internal/errors"
)

// DefaultRequiredKeys lists the credentials the template expects before
// secrets can be synced to GitHub.
var DefaultRequiredKeys = []string{
	"APPLE_ID",
	"APP_STORE_CONNECT_API_KEY_ID",
	"APP_STORE_CONNECT_API_ISSUER_ID",
	"APP_STORE_CONNECT_API_KEY_CONTENT",
	"DEVELOPMENT_TEAM",
	"MATCH_GIT_URL",
	"MATCH_PASSWORD",
	"MATCH_KEYCHAIN_PASSWORD",
}

// placeholderSubstrings flag values copied unchanged from the .env template.
var placeholderSubstrings = []string{
	"your",
	"YOUR",
	"example.com",
	"changeme",
	"CHANGEME",
	"xxxx",
	"XXXX",
}

// EnvFile is a parsed .env file.
type EnvFile struct {
	Path   string
	Values map[string]string
}

// Issue describes a single validation problem for one key.
type Issue struct {
	Key     string
	Value   string
	Reason  string
	Warning bool // warnings do not fail validation
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Key, i.Reason)
}

// Load reads and parses a .env file.
func Load(path string) (*EnvFile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.NewValidationError(errors.ErrCodeEnvFileMissing,
			"env file not found: "+path).
			WithRemediation("run 'shipkit init' to create one from the template")
	}

	values, err := gotenv.Read(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeEnvKeyInvalid,
			"cannot parse env file: "+path, err)
	}

	return &EnvFile{
		Path:   path,
		Values: values,
	}, nil
}

// Get returns the value for a key, empty string when absent.
func (f *EnvFile) Get(key string) string {
	return f.Values[key]
}

// Keys returns all keys in sorted order.
func (f *EnvFile) Keys() []string {
	keys := make([]string, 0, len(f.Values))
	for k := range f.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that every required key is present, non-empty, and free of
// placeholder text. Keys present in the file but not in requiredKeys produce
// warnings so typos surface without failing the run.
func (f *EnvFile) Validate(requiredKeys []string) []Issue {
	var issues []Issue

	required := make(map[string]bool, len(requiredKeys))
	for _, key := range requiredKeys {
		required[key] = true

		value, ok := f.Values[key]
		if !ok {
			issues = append(issues, Issue{
				Key:    key,
				Reason: "required key is missing",
			})
			continue
		}

		if strings.TrimSpace(value) == "" {
			issues = append(issues, Issue{
				Key:    key,
				Reason: "required key is empty",
			})
			continue
		}

		if placeholder := findPlaceholder(value); placeholder != "" {
			issues = append(issues, Issue{
				Key:    key,
				Value:  value,
				Reason: fmt.Sprintf("value still contains template placeholder %q", placeholder),
			})
		}
	}

	for _, key := range f.Keys() {
		if !required[key] {
			issues = append(issues, Issue{
				Key:     key,
				Reason:  "key is not in the configured required list",
				Warning: true,
			})
		}
	}

	return issues
}

// HasErrors reports whether any issue is a hard failure.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if !issue.Warning {
			return true
		}
	}
	return false
}

// ValidationError converts hard issues into a single error, nil when clean.
func ValidationError(issues []Issue) error {
	var failed []string
	for _, issue := range issues {
		if !issue.Warning {
			failed = append(failed, issue.String())
		}
	}

	if len(failed) == 0 {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeEnvKeyInvalid,
		fmt.Sprintf("env validation failed for %d key(s): %s",
			len(failed), strings.Join(failed, "; "))).
		WithRemediation("edit the .env file and replace the placeholder values")
}

func findPlaceholder(value string) string {
	for _, placeholder := range placeholderSubstrings {
		if strings.Contains(value, placeholder) {
			return placeholder
		}
	}
	return ""
}
