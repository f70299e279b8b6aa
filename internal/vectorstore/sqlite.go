// Package vectorstore persists embedded chunks in SQLite and serves
// cosine-ranked similarity search. The corpus is a few hundred chunks, so
// search is a brute-force scan; no approximate index is needed.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"unibot/internal/domain"
)

// SQLiteStore implements domain.VectorStore.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create store directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open store: %w", err)
	}

	// Single connection: SQLite with one local writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, path: path, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		content     TEXT NOT NULL,
		filename    TEXT,
		link        TEXT,
		title       TEXT,
		description TEXT,
		embedding   TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Path() string { return s.path }

// Add inserts a batch of embedded chunks in one transaction. Re-running
// ingestion appends; rows are never updated in place.
func (s *SQLiteStore) Add(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (content, filename, link, title, description, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		embeddingJSON, err := json.Marshal(c.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding %d: %w", i, err)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		m := c.Chunk.Metadata
		if _, err := stmt.ExecContext(ctx,
			c.Chunk.Content, m.Filename, m.Link, m.Title, m.Description,
			string(embeddingJSON), createdAt,
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("chunks stored", "count", len(chunks), "path", s.path)
	return nil
}

// SearchWithScores returns the k chunks closest to the query vector,
// ordered by descending cosine similarity. Thresholding is the caller's
// concern; the store reports raw scores.
func (s *SQLiteStore) SearchWithScores(ctx context.Context, query []float64, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, filename, link, title, description, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var (
			chunk         domain.Chunk
			embeddingJSON string
		)
		if err := rows.Scan(&chunk.ID, &chunk.Content,
			&chunk.Metadata.Filename, &chunk.Metadata.Link,
			&chunk.Metadata.Title, &chunk.Metadata.Description,
			&embeddingJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}

		var embedding []float64
		if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding for chunk %d: %w", chunk.ID, err)
		}

		score, err := CosineSimilarity(query, embedding)
		if err != nil {
			return nil, fmt.Errorf("score chunk %d: %w", chunk.ID, err)
		}

		results = append(results, domain.SearchResult{Chunk: chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of stored chunks. Zero means the index has not
// been bootstrapped yet.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
