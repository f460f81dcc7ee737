package release

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateChangelogCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")

	err := UpdateChangelog(path, ChangelogEntry{
		Version: "0.1.0",
		Date:    "2026-08-31",
		Commits: []string{"feat: initial import", "chore: wire CI"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(content)
	assert.True(t, strings.HasPrefix(text, "# Changelog"))
	assert.Contains(t, text, "## [0.1.0] - 2026-08-31")
	assert.Contains(t, text, "- feat: initial import")
	assert.Contains(t, text, "- chore: wire CI")
}

func TestUpdateChangelogPrependsNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")

	require.NoError(t, UpdateChangelog(path, ChangelogEntry{
		Version: "1.0.0",
		Date:    "2026-07-01",
		Commits: []string{"feat: first release"},
	}))
	require.NoError(t, UpdateChangelog(path, ChangelogEntry{
		Version: "1.1.0",
		Date:    "2026-08-31",
		Commits: []string{"feat: second release"},
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(content)
	newer := strings.Index(text, "## [1.1.0]")
	older := strings.Index(text, "## [1.0.0]")
	require.GreaterOrEqual(t, newer, 0)
	require.GreaterOrEqual(t, older, 0)
	assert.Less(t, newer, older)
}

func TestUpdateChangelogWithoutCommits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")

	require.NoError(t, UpdateChangelog(path, ChangelogEntry{Version: "0.2.0", Date: "2026-08-31"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "- No changes recorded")
}

func TestUpdateChangelogKeepsExistingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	custom := "# History\n\nHand-written preamble.\n\n## [0.9.0] - 2026-01-01\n\n### Changed\n- old entry\n"
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))

	require.NoError(t, UpdateChangelog(path, ChangelogEntry{
		Version: "1.0.0",
		Date:    "2026-08-31",
		Commits: []string{"feat: ship it"},
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(content)
	assert.True(t, strings.HasPrefix(text, "# History"))
	assert.Contains(t, text, "Hand-written preamble.")
	assert.Less(t, strings.Index(text, "## [1.0.0]"), strings.Index(text, "## [0.9.0]"))
}
