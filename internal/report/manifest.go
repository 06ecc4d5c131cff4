package report

import (
	"bytes"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest name inside a template directory.
const ManifestFile = "manifest.yaml"

// Manifest describes a versioned report template.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Entry       string `yaml:"entry"`
	HeaderTitle string `yaml:"header_title"`
	Page        Page   `yaml:"page"`
}

// Page holds print settings in millimetres.
type Page struct {
	Format          string  `yaml:"format"`
	MarginMM        float64 `yaml:"margin_mm"`
	PreviewMarginMM float64 `yaml:"preview_margin_mm"`
}

// LoadManifest reads and strictly parses the manifest from fsys. Unknown keys
// are rejected; format defaults to A4 and margins to 15mm and 10mm.
func LoadManifest(fsys fs.FS) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read report manifest: %w", err)
	}

	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse report manifest: %w", err)
	}

	if m.Name == "" {
		return nil, fmt.Errorf("report manifest missing required field: name")
	}
	if m.Version == "" {
		return nil, fmt.Errorf("report manifest missing required field: version")
	}
	if m.Entry == "" {
		return nil, fmt.Errorf("report manifest missing required field: entry")
	}
	if m.HeaderTitle == "" {
		m.HeaderTitle = "InterviewAce"
	}
	if m.Page.Format == "" {
		m.Page.Format = "A4"
	}
	if m.Page.MarginMM == 0 {
		m.Page.MarginMM = 15
	}
	if m.Page.PreviewMarginMM == 0 {
		m.Page.PreviewMarginMM = 10
	}
	return &m, nil
}
