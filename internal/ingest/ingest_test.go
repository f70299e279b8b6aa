package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"unibot/internal/config"
	"unibot/internal/domain"
)

// captureStore records added chunks in memory.
type captureStore struct {
	added []domain.EmbeddedChunk
}

func (c *captureStore) Add(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	c.added = append(c.added, chunks...)
	return nil
}

func (c *captureStore) SearchWithScores(ctx context.Context, query []float64, k int) ([]domain.SearchResult, error) {
	return nil, nil
}

func (c *captureStore) Count(ctx context.Context) (int, error) { return len(c.added), nil }

func TestIngestLinks_ProvenanceOnEveryChunk(t *testing.T) {
	dir := t.TempDir()
	linksPath := filepath.Join(dir, "links.json")
	catalog := `[
		{"title": "Kursanmeldung", "description": "Anmeldung zu Lehrveranstaltungen", "link": "https://moodle.example/kurs1"},
		{"title": "Prüfungstermine", "description": "Termine und Fristen", "link": "https://moodle.example/kurs2"}
	]`
	if err := os.WriteFile(linksPath, []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &captureStore{}
	p := NewPipeline(config.CorpusConfig{LinksPath: linksPath},
		&stubEmbedder{fallback: []float64{1, 0}}, store, testLogger())

	if err := p.IngestLinks(context.Background()); err != nil {
		t.Fatalf("IngestLinks: %v", err)
	}
	if len(store.added) == 0 {
		t.Fatal("no chunks stored")
	}
	for _, ec := range store.added {
		m := ec.Chunk.Metadata
		if m.Title == "" || m.Link == "" || m.Description == "" {
			t.Fatalf("link chunk missing provenance: %+v", m)
		}
		if m.FromFile() {
			t.Fatalf("link chunk must not claim file provenance: %+v", m)
		}
		if len(ec.Embedding) == 0 {
			t.Fatal("chunk stored without embedding")
		}
	}
}

func TestSplitDocument_PageNumbersAndProvenance(t *testing.T) {
	p := NewPipeline(config.CorpusConfig{},
		&stubEmbedder{fallback: []float64{1, 0}}, &captureStore{}, testLogger())

	src := SourceEntry{Title: "Hausordnung", Link: "https://example.org/haus", FirstPage: 5}
	pages := []string{"Seite eins Inhalt.", "", "Seite drei Inhalt."}

	chunks, err := p.splitDocument(context.Background(), src, pages)
	if err != nil {
		t.Fatalf("splitDocument: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("blank page should yield no chunk, got %d chunks", len(chunks))
	}
	if chunks[0].Metadata.Page != 5 || chunks[1].Metadata.Page != 7 {
		t.Fatalf("page numbers = %d, %d; want 5, 7", chunks[0].Metadata.Page, chunks[1].Metadata.Page)
	}
	for _, c := range chunks {
		if c.Metadata.Filename != "Hausordnung" || c.Metadata.Link == "" {
			t.Fatalf("file chunk missing provenance: %+v", c.Metadata)
		}
	}
}

func TestManifestLookup(t *testing.T) {
	m := &Manifest{Sources: []SourceEntry{
		{File: "Hausordnung", Title: "Hausordnung", Link: "https://example.org/haus", FirstPage: 5},
	}}

	got := m.Lookup("Cleaned_Hausordnung_v2.pdf")
	if got.Title != "Hausordnung" || got.FirstPage != 5 {
		t.Fatalf("substring match failed: %+v", got)
	}

	unknown := m.Lookup("Unbekannt.pdf")
	if unknown.Title != "Unbekannt" || unknown.Link != "" || unknown.FirstPage != 1 {
		t.Fatalf("fallback entry wrong: %+v", unknown)
	}
}

func TestLoadManifest_Missing(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "sources.yaml"))
	if err != nil {
		t.Fatalf("missing manifest should not error: %v", err)
	}
	if len(m.Sources) != 0 {
		t.Fatalf("expected empty manifest, got %+v", m)
	}
}

func TestLoadManifest_Parse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := `sources:
  - file: Satzung
    title: Satzung
    link: https://example.org/satzung
    firstPage: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Sources) != 1 || m.Sources[0].Link != "https://example.org/satzung" {
		t.Fatalf("parsed manifest wrong: %+v", m)
	}
}

func TestLoadLinks_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLinks(path); err == nil {
		t.Fatal("expected parse error")
	}
}
