// Package ingest builds the retrieval index from the corpus: policy PDFs
// are extracted page by page, normalized for German abbreviations and
// number formatting, split semantically and embedded; the Moodle link
// catalog is converted record by record with a fixed-size splitter.
// Ingestion runs offline, once; re-running it appends under the same store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"unibot/internal/config"
	"unibot/internal/domain"
)

const (
	// Link-catalog entries are short and already structured, so they get
	// a plain fixed-size/overlap split instead of semantic splitting.
	linkChunkSize    = 1000
	linkChunkOverlap = 500

	embedBatchSize = 100
)

// Pipeline wires extraction, normalization, splitting, embedding and
// storage together.
type Pipeline struct {
	corpus   config.CorpusConfig
	embedder domain.Embedder
	store    domain.VectorStore
	splitter *SemanticSplitter
	logger   *slog.Logger
}

func NewPipeline(corpus config.CorpusConfig, embedder domain.Embedder, store domain.VectorStore, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		corpus:   corpus,
		embedder: embedder,
		store:    store,
		splitter: NewSemanticSplitter(embedder, logger),
		logger:   logger,
	}
}

// Run ingests the PDF corpus and then the link catalog.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.IngestPDFs(ctx); err != nil {
		return err
	}
	return p.IngestLinks(ctx)
}

// IngestPDFs processes every PDF in the corpus directory. A document that
// cannot be opened or has no extractable pages yields zero chunks and the
// run continues.
func (p *Pipeline) IngestPDFs(ctx context.Context) error {
	abbreviations, err := LoadAbbreviations(p.corpus.AbbreviationsPath)
	if err != nil {
		return err
	}
	normalizer := NewNormalizer(abbreviations)

	manifest, err := LoadManifest(p.corpus.ManifestPath)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(p.corpus.PDFDir)
	if err != nil {
		return fmt.Errorf("read corpus directory %s: %w", p.corpus.PDFDir, err)
	}

	var chunks []domain.Chunk
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}

		path := filepath.Join(p.corpus.PDFDir, entry.Name())
		pages, err := ExtractPages(path, p.logger)
		if err != nil {
			p.logger.Warn("skipping unreadable pdf", "file", entry.Name(), "err", err)
			continue
		}
		if len(pages) == 0 {
			p.logger.Warn("pdf has no extractable pages", "file", entry.Name())
			continue
		}

		src := manifest.Lookup(entry.Name())

		// Normalize the document as a whole, then recover page
		// boundaries from the form-feed joins.
		document := normalizer.Normalize(strings.Join(pages, "\f"))
		pages = strings.Split(document, "\f")

		docChunks, err := p.splitDocument(ctx, src, pages)
		if err != nil {
			return fmt.Errorf("split %s: %w", entry.Name(), err)
		}
		p.logger.Info("pdf processed", "file", entry.Name(), "pages", len(pages), "chunks", len(docChunks))
		chunks = append(chunks, docChunks...)
	}

	return p.embedAndStore(ctx, chunks)
}

func (p *Pipeline) splitDocument(ctx context.Context, src SourceEntry, pages []string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for pageIdx, pageContent := range pages {
		if strings.TrimSpace(pageContent) == "" {
			continue
		}
		pieces, err := p.splitter.Split(ctx, pageContent)
		if err != nil {
			return nil, err
		}
		for _, piece := range pieces {
			chunks = append(chunks, domain.Chunk{
				Content: piece,
				Metadata: domain.ChunkMetadata{
					Filename: src.Title,
					Link:     src.Link,
					// Computed but not persisted by the store.
					Page: src.FirstPage + pageIdx,
				},
			})
		}
	}
	return chunks, nil
}

// IngestLinks converts each catalog record into chunks via the fixed
// splitter and stores them with title/link/description metadata.
func (p *Pipeline) IngestLinks(ctx context.Context) error {
	records, err := LoadLinks(p.corpus.LinksPath)
	if err != nil {
		return err
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(linkChunkSize),
		textsplitter.WithChunkOverlap(linkChunkOverlap),
	)

	var chunks []domain.Chunk
	for _, rec := range records {
		pieces, err := splitter.SplitText(linkContent(rec))
		if err != nil {
			return fmt.Errorf("split link %q: %w", rec.Title, err)
		}
		for _, piece := range pieces {
			chunks = append(chunks, domain.Chunk{
				Content: piece,
				Metadata: domain.ChunkMetadata{
					Title:       rec.Title,
					Link:        rec.Link,
					Description: rec.Description,
				},
			})
		}
	}

	p.logger.Info("link catalog processed", "records", len(records), "chunks", len(chunks))
	return p.embedAndStore(ctx, chunks)
}

// embedAndStore embeds chunks in batches and persists them.
func (p *Pipeline) embedAndStore(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}

		embedded := make([]domain.EmbeddedChunk, len(batch))
		for i, c := range batch {
			embedded[i] = domain.EmbeddedChunk{Chunk: c, Embedding: vectors[i]}
		}
		if err := p.store.Add(ctx, embedded); err != nil {
			return fmt.Errorf("store batch: %w", err)
		}
	}
	return nil
}
