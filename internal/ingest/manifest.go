package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceEntry maps a corpus PDF to its canonical metadata. FirstPage is the
// document's real first page number (cover pages were removed before
// ingestion, so page counting starts offset).
type SourceEntry struct {
	File      string `yaml:"file"`
	Title     string `yaml:"title"`
	Link      string `yaml:"link"`
	FirstPage int    `yaml:"firstPage"`
}

// Manifest is the sources.yaml catalog describing every known PDF.
type Manifest struct {
	Sources []SourceEntry `yaml:"sources"`
}

// LoadManifest reads sources.yaml. A missing manifest is not fatal: every
// PDF then falls back to filename-derived metadata.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Lookup resolves metadata for a PDF filename. Entries match by substring
// so a manifest entry "Hausordnung" covers "Cleaned_Hausordnung_v2.pdf".
// Unknown files get the bare filename as title and no link.
func (m *Manifest) Lookup(filename string) SourceEntry {
	for _, e := range m.Sources {
		if e.File != "" && strings.Contains(filename, e.File) {
			entry := e
			if entry.FirstPage < 1 {
				entry.FirstPage = 1
			}
			return entry
		}
	}
	return SourceEntry{
		File:      filename,
		Title:     strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		FirstPage: 1,
	}
}
