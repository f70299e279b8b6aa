package domain

import "time"

// Chunk is a bounded span of corpus text stored with provenance metadata.
// File-sourced chunks carry Filename+Link, link-sourced chunks carry
// Title+Link+Description; exactly one of the two shapes is populated.
type Chunk struct {
	ID       int64         `json:"id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata holds the provenance of a chunk. Answer composition relies
// on it to attribute sources, so it must never be empty.
type ChunkMetadata struct {
	Filename    string `json:"filename,omitempty"`
	Link        string `json:"link,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Page is computed during ingestion but not persisted to the store.
	Page int `json:"-"`
}

// FromFile reports whether the chunk came from a PDF document rather than
// the link catalog.
func (m ChunkMetadata) FromFile() bool { return m.Filename != "" }

// EmbeddedChunk pairs a chunk with its embedding vector, ready for the
// vector store.
type EmbeddedChunk struct {
	Chunk     Chunk
	Embedding []float64
	CreatedAt time.Time
}

// SearchResult is a single similarity-search hit. Score is cosine
// similarity between the query and the chunk embedding; higher is closer.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// LinkRecord is one entry of the Moodle link catalog (data/links/links.json).
type LinkRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}
