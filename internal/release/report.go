package release

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/gitrepo"
)

// Report collects everything the finish step knows about a release.
type Report struct {
	Version    string
	Date       string
	Repo       string
	Tag        string
	Commits    []gitrepo.Commit
	ReleaseURL string
	Notes      string
}

const reportTemplate = `# Release Report: {{.Version}}

- **Repository**: {{.Repo}}
- **Tag**: {{.Tag}}
- **Date**: {{.Date}}
{{- if .ReleaseURL}}
- **GitHub release**: {{.ReleaseURL}}
{{- end}}

## Commits

{{range .Commits}}- {{.Subject}} ({{slug .Hash}}, {{.Author}})
{{else}}- No commits recorded
{{end}}
{{- if .Notes}}
## Release Notes

{{.Notes}}
{{- end}}
`

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"slug": shortHash,
}).Parse(reportTemplate))

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// WriteReport renders the release report into dir as
// release-report-<version>.md and returns the written path.
func WriteReport(dir string, report Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, report); err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInternal, "failed to render release report", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewIOError(errors.ErrCodeInternal, "failed to create report directory", err)
	}

	path := filepath.Join(dir, "release-report-"+report.Version+".md")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", errors.NewIOError(errors.ErrCodeInternal, "failed to write release report", err)
	}
	return path, nil
}
