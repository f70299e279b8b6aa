// Package rag implements the online question path: embed the question,
// fetch the closest chunks, assemble a context block and ask the model for
// a grounded answer.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"unibot/internal/domain"
)

// Fixed user-facing messages for the non-answer outcomes. These are part
// of the tool's observable behavior, not placeholders.
const (
	MsgNoInformation = "Sorry, I can't find any information on this topic."
	MsgSearchError   = "An error occurred while searching for relevant information."
	MsgEmptyQuestion = "Please ask a specific question."
)

// Outcome is the typed result of retrieval. NoContext is not an error: it
// means the corpus has nothing relevant enough and the caller answers with
// the fixed apology instead of querying the model.
type Outcome struct {
	Results   []domain.SearchResult
	NoContext bool
}

// Retriever embeds questions and searches the vector store. The embedder
// must be the same instance (same model) used during ingestion.
type Retriever struct {
	embedder       domain.Embedder
	store          domain.VectorStore
	topK           int
	scoreThreshold float64
	logger         *slog.Logger
}

type RetrieverConfig struct {
	Embedder domain.Embedder
	Store    domain.VectorStore
	// TopK is the maximum number of hits (default 10).
	TopK int
	// ScoreThreshold decides whether the question is answerable at all:
	// if no hit reaches it, the outcome is NoContext (default 0.50).
	ScoreThreshold float64
	Logger         *slog.Logger
}

func NewRetriever(cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 0.50
	}
	return &Retriever{
		embedder:       cfg.Embedder,
		store:          cfg.Store,
		topK:           cfg.TopK,
		scoreThreshold: cfg.ScoreThreshold,
		logger:         cfg.Logger,
	}
}

// Retrieve returns the ranked hits for question. An error here is a
// provider or store failure; an unanswerable question is a NoContext
// outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) (Outcome, error) {
	queryVec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return Outcome{}, fmt.Errorf("embed question: %w", err)
	}

	results, err := r.store.SearchWithScores(ctx, queryVec, r.topK)
	if err != nil {
		return Outcome{}, fmt.Errorf("similarity search: %w", err)
	}

	usable := false
	for _, res := range results {
		if res.Score >= r.scoreThreshold {
			usable = true
			break
		}
	}

	if !usable {
		r.logger.Info("no relevant context", "question_len", len(question), "hits", len(results))
	}
	return Outcome{Results: results, NoContext: !usable}, nil
}
