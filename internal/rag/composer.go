package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"unibot/internal/domain"
)

// Composer turns retrieved chunks into a prompt context and asks the model
// for the answer. Template compliance is enforced by prompt instruction
// only; the output is not validated programmatically.
type Composer struct {
	generator domain.Generator
	// contextThreshold is deliberately looser than the retriever's
	// score threshold: hits below "answerable" quality may still be
	// included as context once something cleared the higher bar.
	contextThreshold float64
	logger           *slog.Logger
}

type ComposerConfig struct {
	Generator domain.Generator
	// ContextThreshold filters which hits enter the context (default 0.10).
	ContextThreshold float64
	Logger           *slog.Logger
}

func NewComposer(cfg ComposerConfig) *Composer {
	if cfg.ContextThreshold <= 0 {
		cfg.ContextThreshold = 0.10
	}
	return &Composer{
		generator:        cfg.Generator,
		contextThreshold: cfg.ContextThreshold,
		logger:           cfg.Logger,
	}
}

// BuildContext renders one block per hit at or above the context threshold,
// in rank order. File-sourced chunks carry filename and link, link-sourced
// chunks carry the Moodle name, link and description, so the model can
// attribute every statement.
func (c *Composer) BuildContext(results []domain.SearchResult) string {
	var blocks []string
	for _, res := range results {
		if res.Score < c.contextThreshold {
			continue
		}
		m := res.Chunk.Metadata
		if m.FromFile() {
			blocks = append(blocks, fmt.Sprintf("[Filename: %s] [file-Link: %s]<%s>",
				m.Filename, m.Link, res.Chunk.Content))
		} else {
			blocks = append(blocks, fmt.Sprintf("[Moodle-Name: %s] [Moodle-Link: %s][Moodle-Description: %s]",
				m.Title, m.Link, m.Description))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// Compose produces the final answer for question from the retrieved hits.
func (c *Composer) Compose(ctx context.Context, question string, results []domain.SearchResult) (string, error) {
	contextBlock := c.BuildContext(results)
	prompt := BuildPrompt(contextBlock, question)

	answer, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
