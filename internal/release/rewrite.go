package release

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shipkit-io/shipkit/internal/errors"
)

// RewriteVersions replaces occurrences of current with next in each of the
// configured version files, resolved relative to root. Files that do not
// exist or do not mention the current version are skipped; the returned
// slice lists the files actually modified.
func RewriteVersions(root string, files []string, current, next string) ([]string, error) {
	if current == "" || current == next {
		return nil, nil
	}

	var changed []string
	for _, name := range files {
		path := filepath.Join(root, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return changed, errors.NewIOError(errors.ErrCodeInternal, "failed to read "+name, err)
		}

		content := string(data)
		if !strings.Contains(content, current) {
			continue
		}

		updated := strings.ReplaceAll(content, current, next)
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return changed, errors.NewIOError(errors.ErrCodeInternal, "failed to write "+name, err)
		}
		changed = append(changed, name)
	}
	return changed, nil
}
