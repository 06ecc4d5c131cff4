package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"sync"
)

//go:embed templates
var embedded embed.FS

// EmbeddedTemplates returns the built-in template directory.
func EmbeddedTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplatesFromDir returns the embedded templates, or dir when it is set.
func TemplatesFromDir(dir string) fs.FS {
	if dir == "" {
		return EmbeddedTemplates()
	}
	return os.DirFS(dir)
}

// Renderer turns a ReportData into HTML. The template is loaded on first use
// and cached once it parses; a failed load is retried on the next call.
type Renderer struct {
	fsys fs.FS

	mu       sync.Mutex
	tmpl     *template.Template
	manifest *Manifest
}

// NewRenderer returns a renderer reading its manifest and template from fsys.
func NewRenderer(fsys fs.FS) *Renderer {
	return &Renderer{fsys: fsys}
}

// Load parses the manifest and template. Failures wrap ErrTemplateUnavailable.
func (r *Renderer) Load() (*Manifest, error) {
	_, m, err := r.load()
	return m, err
}

func (r *Renderer) load() (*template.Template, *Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tmpl != nil {
		return r.tmpl, r.manifest, nil
	}
	if r.fsys == nil {
		return nil, nil, fmt.Errorf("%w: no template source", ErrTemplateUnavailable)
	}

	m, err := LoadManifest(r.fsys)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}
	src, err := fs.ReadFile(r.fsys, m.Entry)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}
	tmpl, err := template.New(m.Entry).Funcs(Funcs()).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse %s: %v", ErrTemplateUnavailable, m.Entry, err)
	}

	r.tmpl, r.manifest = tmpl, m
	return tmpl, m, nil
}

// view is what the template executes against.
type view struct {
	ReportData
	Template *Manifest
}

// Render executes the template into a buffer and returns the whole document.
// Nothing is returned on error.
func (r *Renderer) Render(data ReportData) (string, error) {
	tmpl, m, err := r.load()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view{ReportData: data, Template: m}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return buf.String(), nil
}
