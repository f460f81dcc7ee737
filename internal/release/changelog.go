package release

import (
	"bytes"
	"os"
	"strings"
	"text/template"

	"github.com/shipkit-io/shipkit/internal/errors"
)

const changelogHeader = `# Changelog

All notable changes to this project are documented in this file.
`

const sectionTemplate = `## [{{.Version}}] - {{.Date}}

### Changed
{{range .Commits}}- {{.}}
{{else}}- No changes recorded
{{end}}`

// ChangelogEntry is one released version's section.
type ChangelogEntry struct {
	Version string
	Date    string
	Commits []string
}

var changelogSection = template.Must(template.New("section").Parse(sectionTemplate))

// RenderSection renders the markdown section for one entry.
func RenderSection(entry ChangelogEntry) (string, error) {
	var buf bytes.Buffer
	if err := changelogSection.Execute(&buf, entry); err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInternal, "failed to render changelog section", err)
	}
	return buf.String(), nil
}

// UpdateChangelog prepends entry below the changelog header, creating the
// file with a standard header when it does not exist yet.
func UpdateChangelog(path string, entry ChangelogEntry) error {
	section, err := RenderSection(entry)
	if err != nil {
		return err
	}

	existing, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.NewIOError(errors.ErrCodeInternal, "failed to read changelog", err)
		}
		existing = []byte(changelogHeader)
	}

	content := insertSection(string(existing), section)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.NewIOError(errors.ErrCodeInternal, "failed to write changelog", err)
	}
	return nil
}

// insertSection places section before the first existing "## " heading, or
// appends it after the header when no release sections exist yet.
func insertSection(existing, section string) string {
	if idx := strings.Index(existing, "\n## "); idx >= 0 {
		return existing[:idx+1] + section + "\n" + existing[idx+1:]
	}
	if !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}
	return existing + "\n" + section
}
