// Package answer runs the question loop: consume inbound questions from
// the bus, run retrieval and composition, and send answers back.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"unibot/internal/domain"
	"unibot/internal/rag"
	"unibot/internal/session"
)

const defaultConcurrency = 4

// Retriever finds ranked context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) (rag.Outcome, error)
}

// Composer produces the final answer from retrieved context.
type Composer interface {
	Compose(ctx context.Context, question string, results []domain.SearchResult) (string, error)
}

// Engine consumes inbound questions and answers them. Each question runs
// in its own goroutine so the channel surface stays responsive while an
// answer is in flight.
type Engine struct {
	retriever   Retriever
	composer    Composer
	session     *session.Session
	bus         domain.MessageBus
	logger      *slog.Logger
	concurrency int
}

type EngineConfig struct {
	Retriever Retriever
	Composer  Composer
	Session   *session.Session
	Bus       domain.MessageBus
	Logger    *slog.Logger
	// Concurrency bounds parallel questions (default 4).
	Concurrency int
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Engine{
		retriever:   cfg.Retriever,
		composer:    cfg.Composer,
		session:     cfg.Session,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run consumes inbound questions until ctx is cancelled or the bus closes.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("answer engine started", "concurrency", e.concurrency)

	sem := make(chan struct{}, e.concurrency)
	inbound := e.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("answer engine stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				e.logger.Info("inbound closed, answer engine stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				e.process(ctx, m)
			}(msg)
		}
	}
}

// process answers a single question. A whitespace-only question is
// rejected here without touching the provider, the store or the session.
func (e *Engine) process(ctx context.Context, msg domain.InboundMessage) {
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		e.send(msg, rag.MsgEmptyQuestion, nil)
		return
	}

	reqID, qctx, err := e.session.Submit(ctx, text)
	if err != nil {
		e.logger.Warn("question rejected", "err", err)
		return
	}
	if err := e.session.MarkAnswering(reqID); err != nil {
		e.logger.Error("question lifecycle broken", "request", reqID, "err", err)
		e.session.Abort(reqID)
		return
	}

	start := time.Now()

	outcome, err := e.retriever.Retrieve(qctx, text)
	if err != nil {
		e.logger.Error("retrieval failed", "request", reqID, "err", err)
		e.session.Abort(reqID)
		e.send(msg, rag.MsgSearchError, nil)
		return
	}

	var answer string
	noContext := outcome.NoContext
	if noContext {
		answer = rag.MsgNoInformation
	} else {
		answer, err = e.composer.Compose(qctx, text, outcome.Results)
		if err != nil {
			elapsed := time.Since(start)
			e.logger.Error("composition failed", "request", reqID, "err", err)
			e.session.Abort(reqID)
			e.send(msg, fmt.Sprintf("Query error: %v (%.2f s)", err, elapsed.Seconds()), nil)
			return
		}
	}

	elapsed := time.Since(start)
	if err := e.session.MarkAnswered(reqID, answer, elapsed); err != nil {
		// Session closed while answering; drop the result.
		e.logger.Info("answer dropped", "request", reqID, "err", err)
		return
	}

	e.send(msg, answer, &domain.AnswerSnapshot{
		RequestID: reqID,
		Question:  text,
		Answer:    answer,
		Elapsed:   elapsed,
		NoContext: noContext,
	})
}

func (e *Engine) send(msg domain.InboundMessage, content string, snapshot *domain.AnswerSnapshot) {
	e.bus.SendOutbound(domain.OutboundMessage{
		Channel:  msg.Channel,
		ChatID:   msg.ChatID,
		Content:  content,
		Snapshot: snapshot,
	})
}
