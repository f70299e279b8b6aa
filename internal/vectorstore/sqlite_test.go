package vectorstore

import (
	"context"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"unibot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "index.sqlite"), testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func embedded(content string, meta domain.ChunkMetadata, vec []float64) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{
		Chunk:     domain.Chunk{Content: content, Metadata: meta},
		Embedding: vec,
	}
}

func TestSearchWithScores_OrderAndK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, []domain.EmbeddedChunk{
		embedded("exact", domain.ChunkMetadata{Filename: "Satzung", Link: "https://example.org/satzung"}, []float64{1, 0}),
		embedded("close", domain.ChunkMetadata{Filename: "Hausordnung", Link: "https://example.org/haus"}, []float64{1, 0.2}),
		embedded("far", domain.ChunkMetadata{Title: "Moodle", Link: "https://example.org/moodle", Description: "course"}, []float64{0, 1}),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := store.SearchWithScores(ctx, []float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("SearchWithScores: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Content != "exact" || results[1].Chunk.Content != "close" {
		t.Fatalf("wrong order: %q, %q", results[0].Chunk.Content, results[1].Chunk.Content)
	}
	if results[0].Score < results[1].Score {
		t.Fatal("scores not descending")
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Fatalf("identical vectors should score 1.0, got %f", results[0].Score)
	}
}

func TestSearchWithScores_MetadataRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta := domain.ChunkMetadata{Title: "Anmeldung", Link: "https://moodle.example/a", Description: "Kursanmeldung"}
	if err := store.Add(ctx, []domain.EmbeddedChunk{embedded("link chunk", meta, []float64{1, 1})}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := store.SearchWithScores(ctx, []float64{1, 1}, 10)
	if err != nil {
		t.Fatalf("SearchWithScores: %v", err)
	}
	got := results[0].Chunk.Metadata
	if got.Title != meta.Title || got.Link != meta.Link || got.Description != meta.Description {
		t.Fatalf("metadata mangled: %+v", got)
	}
	if got.FromFile() {
		t.Fatal("link-sourced chunk must not report FromFile")
	}
}

func TestAdd_AppendsOnReingest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch := []domain.EmbeddedChunk{embedded("a", domain.ChunkMetadata{Filename: "f", Link: "l"}, []float64{1})}
	if err := store.Add(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(ctx, batch); err != nil {
		t.Fatal(err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("re-ingest should append, got count %d", n)
	}
}

func TestCount_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("fresh store should be empty, got %d", n)
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	if _, err := CosineSimilarity([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float64{0, 0}, []float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if sim != 0 {
		t.Fatalf("zero vector should score 0, got %f", sim)
	}
}

func TestCosineDistance(t *testing.T) {
	d, err := CosineDistance([]float64{1, 0}, []float64{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d) > 1e-9 {
		t.Fatalf("identical vectors should have distance 0, got %f", d)
	}
}
