package ingest

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"unibot/internal/domain"
	"unibot/internal/vectorstore"
)

const defaultBreakpointPercentile = 95.0

// SemanticSplitter divides text into context-coherent chunks at boundaries
// chosen by similarity between adjacent sentence embeddings. Normalization
// must run first: stray abbreviation dots would otherwise shred sentences.
// The embedding work is delegated to the provider; only the
// breakpoint-percentile selection happens here.
type SemanticSplitter struct {
	embedder   domain.Embedder
	percentile float64
	logger     *slog.Logger
}

func NewSemanticSplitter(embedder domain.Embedder, logger *slog.Logger) *SemanticSplitter {
	return &SemanticSplitter{
		embedder:   embedder,
		percentile: defaultBreakpointPercentile,
		logger:     logger,
	}
}

// Split returns the semantic chunks of text, in order. Texts with at most
// two sentences are returned as a single chunk.
func (s *SemanticSplitter) Split(ctx context.Context, text string) ([]string, error) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) <= 2 {
		return []string{strings.TrimSpace(text)}, nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, sentences)
	if err != nil {
		return nil, err
	}

	distances := make([]float64, len(sentences)-1)
	for i := 0; i < len(distances); i++ {
		d, err := vectorstore.CosineDistance(vectors[i], vectors[i+1])
		if err != nil {
			return nil, err
		}
		distances[i] = d
	}

	threshold := percentile(distances, s.percentile)

	var chunks []string
	var current []string
	for i, sentence := range sentences {
		current = append(current, sentence)
		if i < len(distances) && distances[i] > threshold {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks, nil
}

// SplitSentences splits normalized text at sentence-terminating punctuation
// followed by whitespace. Empty fragments are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			atEnd := i == len(runes)-1
			followedBySpace := !atEnd && isSpace(runes[i+1])
			if atEnd || followedBySpace {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

// percentile computes the p-th percentile of values with linear
// interpolation between ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
