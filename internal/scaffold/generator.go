// Package scaffold generates the initial layout of an iOS/macOS app
// repository: docs, environment templates, fastlane stubs, and a buildable
// SwiftPM skeleton.
package scaffold

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	cp "github.com/otiai10/copy"

	"github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/logging"
)

const (
	TemplateApp     = "app"
	TemplateLibrary = "library"
	TemplateMinimal = "minimal"

	// DefaultProjectName is used when init runs without a name.
	DefaultProjectName = "Template Project"
)

// Options control what gets generated.
type Options struct {
	ProjectName string
	BundleID    string
	Template    string // app, library, or minimal
	Force       bool   // overwrite existing files (.env is never overwritten)
	CustomDir   string // user-supplied template tree, copied on top
}

// Result lists what the generator did.
type Result struct {
	Created []string
	Skipped []string
}

// Generator writes the scaffold into a target directory.
type Generator struct {
	root   string
	logger logging.Logger
}

// NewGenerator creates a generator rooted at dir.
func NewGenerator(dir string, logger logging.Logger) *Generator {
	return &Generator{root: dir, logger: logger}
}

// templateData is the context every file template renders against.
type templateData struct {
	Name       string // display name, e.g. "Template Project"
	ModuleName string // Swift module name, e.g. "TemplateProject"
	BundleID   string
	Template   string
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// ModuleName derives a Swift module name from a display name.
func ModuleName(projectName string) string {
	parts := strings.Fields(projectName)
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	name := nonAlphanumeric.ReplaceAllString(strings.Join(parts, ""), "")
	if name == "" {
		name = "App"
	}
	return name
}

// ValidTemplate reports whether name is a known template.
func ValidTemplate(name string) bool {
	switch name {
	case TemplateApp, TemplateLibrary, TemplateMinimal:
		return true
	}
	return false
}

// Generate writes the scaffold. Existing files are skipped unless Force is
// set; a pre-existing .env is always left alone so real credentials never
// get clobbered.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Result, error) {
	if opts.ProjectName == "" {
		opts.ProjectName = DefaultProjectName
	}
	if opts.Template == "" {
		opts.Template = TemplateApp
	}
	if !ValidTemplate(opts.Template) {
		return nil, errors.NewValidationError(errors.ErrCodeConfigInvalid,
			"unknown template "+opts.Template+": must be app, library, or minimal")
	}

	data := templateData{
		Name:       opts.ProjectName,
		ModuleName: ModuleName(opts.ProjectName),
		BundleID:   opts.BundleID,
		Template:   opts.Template,
	}
	if data.BundleID == "" {
		data.BundleID = "com.example." + strings.ToLower(data.ModuleName)
	}

	result := &Result{}
	for _, file := range filesFor(opts.Template, data) {
		if err := g.writeFile(file, data, opts.Force, result); err != nil {
			return nil, err
		}
	}

	if opts.CustomDir != "" {
		if err := cp.Copy(opts.CustomDir, g.root, cp.Options{
			OnDirExists: func(src, dest string) cp.DirExistsAction { return cp.Merge },
		}); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeInternal,
				"failed to copy custom template tree", err)
		}
		result.Created = append(result.Created, opts.CustomDir+" (custom tree)")
	}

	g.logger.Info(ctx, "scaffold generated",
		"template", opts.Template,
		"created", len(result.Created),
		"skipped", len(result.Skipped))
	return result, nil
}

// scaffoldFile pairs a relative path with its template source.
type scaffoldFile struct {
	path    string
	content string
	mode    os.FileMode
}

func (g *Generator) writeFile(file scaffoldFile, data templateData, force bool, result *Result) error {
	path := filepath.Join(g.root, file.path)

	if _, err := os.Stat(path); err == nil {
		// .env holds real credentials once filled in
		if file.path == ".env" || !force {
			result.Skipped = append(result.Skipped, file.path)
			return nil
		}
	}

	rendered, err := render(file.path, file.content, data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewIOError(errors.ErrCodeInternal, "failed to create "+filepath.Dir(file.path), err)
	}

	mode := file.mode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(path, rendered, mode); err != nil {
		return errors.NewIOError(errors.ErrCodeInternal, "failed to write "+file.path, err)
	}

	result.Created = append(result.Created, file.path)
	return nil
}

func render(name, content string, data templateData) ([]byte, error) {
	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "failed to parse template "+name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "failed to render "+name, err)
	}
	return buf.Bytes(), nil
}

// filesFor assembles the file list for a template flavor.
func filesFor(flavor string, data templateData) []scaffoldFile {
	files := []scaffoldFile{
		{path: ".gitignore", content: gitignoreTemplate},
		{path: ".env.template", content: envTemplate},
		{path: ".env", content: envTemplate},
		{path: ".github/CODEOWNERS", content: codeownersTemplate},
		{path: "SECURITY.md", content: securityGuideTemplate},
		{path: "CONTRIBUTING.md", content: contributingTemplate},
		{path: "docs/BRANCHING.md", content: branchingGuideTemplate},
		{path: "docs/TESTING.md", content: testingGuideTemplate},
		{path: "docs/RELEASING.md", content: releaseGuideTemplate},
	}

	if flavor == TemplateMinimal {
		return files
	}

	files = append(files,
		scaffoldFile{path: "Package.swift", content: packageSwiftTemplate},
		scaffoldFile{path: "Sources/" + data.ModuleName + "/" + data.ModuleName + ".swift", content: librarySwiftTemplate},
		scaffoldFile{path: "Sources/" + data.ModuleName + "/Configuration.swift", content: configurationSwiftTemplate},
		scaffoldFile{path: "Tests/" + data.ModuleName + "Tests/" + data.ModuleName + "Tests.swift", content: testsSwiftTemplate},
	)

	if flavor == TemplateApp {
		files = append(files,
			scaffoldFile{path: "Sources/" + data.ModuleName + "/ContentView.swift", content: contentViewSwiftTemplate},
			scaffoldFile{path: "Gemfile", content: gemfileTemplate},
			scaffoldFile{path: "fastlane/Appfile", content: appfileTemplate},
			scaffoldFile{path: "fastlane/Fastfile", content: fastfileTemplate},
		)
	}

	return files
}
