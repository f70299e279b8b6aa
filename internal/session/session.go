// Package session tracks one user-testing run: a timestamp-named session,
// the lifecycle of every question asked in it, and the CSV feedback log.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"unibot/internal/domain"
)

var (
	ErrSessionClosed   = errors.New("session is closed")
	ErrUnknownQuestion = errors.New("unknown question id")
)

// question is the per-question lifecycle record.
type question struct {
	id      string
	text    string
	answer  string
	elapsed time.Duration
	state   QuestionState
}

// Session owns the feedback log and the question registry for one run.
// It is passed explicitly to whoever needs it; there is no package-level
// current session. Session implements domain.FeedbackSink.
type Session struct {
	id     string
	log    *FeedbackLog
	logger *slog.Logger

	mu        sync.Mutex
	questions map[string]*question
	latest    string
	pending   map[string]context.CancelFunc
	closed    bool
}

type Config struct {
	// FeedbackDir holds the per-session CSV logs (default user-testing).
	FeedbackDir string
	Logger      *slog.Logger
}

// New starts a session. The id is the start timestamp (yymmddhhmmss) and
// names the CSV log, whose header is written here, exactly once.
func New(cfg Config) (*Session, error) {
	if cfg.FeedbackDir == "" {
		cfg.FeedbackDir = "user-testing"
	}
	id := time.Now().Format("060102150405")
	log, err := NewFeedbackLog(cfg.FeedbackDir, id)
	if err != nil {
		return nil, err
	}

	cfg.Logger.Info("session started", "session", id, "feedback_log", log.Path())
	return &Session{
		id:        id,
		log:       log,
		logger:    cfg.Logger,
		questions: make(map[string]*question),
		pending:   make(map[string]context.CancelFunc),
	}, nil
}

func (s *Session) ID() string { return s.id }

// LogPath returns the feedback CSV location.
func (s *Session) LogPath() string { return s.log.Path() }

// Submit registers a new question and returns its request id plus a context
// that Close cancels, so in-flight work dies with the session.
func (s *Session) Submit(ctx context.Context, text string) (string, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", nil, ErrSessionClosed
	}

	id := uuid.NewString()
	qctx, cancel := context.WithCancel(ctx)
	s.questions[id] = &question{id: id, text: text, state: StateSubmitted}
	s.pending[id] = cancel
	return id, qctx, nil
}

// MarkAnswering moves a question into the Answering state.
func (s *Session) MarkAnswering(id string) error {
	return s.transition(id, StateAnswering, func(*question) {})
}

// MarkAnswered records the answer and latency and makes the question the
// default target for feedback commands.
func (s *Session) MarkAnswered(id, answer string, elapsed time.Duration) error {
	err := s.transition(id, StateAnswered, func(q *question) {
		q.answer = answer
		q.elapsed = elapsed
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.latest = id
	if cancel, ok := s.pending[id]; ok {
		cancel()
		delete(s.pending, id)
	}
	s.mu.Unlock()
	return nil
}

// Abort drops a question that will never be answered (provider failure).
// It stays out of the feedback log and out of the Latest slot.
func (s *Session) Abort(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.pending[id]; ok {
		cancel()
		delete(s.pending, id)
	}
	delete(s.questions, id)
}

// AwaitFeedback marks an answered question as waiting for the rating
// detail (used while a reason prompt is open).
func (s *Session) AwaitFeedback(id string) error {
	return s.transition(id, StateFeedbackPending, func(*question) {})
}

// Record writes one feedback row for the rated question. A question can be
// rated once; a second attempt is rejected. Negative feedback with no
// reason records the fixed "irrelevant" category.
func (s *Session) Record(snapshot domain.AnswerSnapshot, thumbsUp bool, reason string) error {
	if !thumbsUp && reason == "" {
		reason = domain.FeedbackReasonIrrelevant
	}
	if thumbsUp {
		reason = ""
	}

	if err := s.transition(snapshot.RequestID, StateFeedbackRecorded, func(*question) {}); err != nil {
		return err
	}

	rec := domain.FeedbackRecord{
		SessionID:    s.id,
		Question:     snapshot.Question,
		Answer:       snapshot.Answer,
		ThumbsUp:     thumbsUp,
		ThumbsDown:   !thumbsUp,
		Reason:       reason,
		ResponseTime: snapshot.ElapsedSeconds(),
	}
	if err := s.log.Append(rec); err != nil {
		return err
	}
	s.logger.Info("feedback recorded", "session", s.id, "request", snapshot.RequestID, "thumbs_up", thumbsUp)
	return nil
}

// Snapshot returns the answer snapshot for a question, if it has one.
func (s *Session) Snapshot(id string) (domain.AnswerSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok || q.state == StateSubmitted || q.state == StateAnswering {
		return domain.AnswerSnapshot{}, false
	}
	return domain.AnswerSnapshot{
		RequestID: q.id,
		Question:  q.text,
		Answer:    q.answer,
		Elapsed:   q.elapsed,
	}, true
}

// Latest returns the most recently answered question, the default target
// when a feedback command names no question.
func (s *Session) Latest() (domain.AnswerSnapshot, bool) {
	s.mu.Lock()
	id := s.latest
	s.mu.Unlock()
	if id == "" {
		return domain.AnswerSnapshot{}, false
	}
	return s.Snapshot(id)
}

// State reports a question's lifecycle state.
func (s *Session) State(id string) (QuestionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return 0, false
	}
	return q.state, true
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close ends the session: outstanding work is cancelled, unrated answers
// become Unrated, and the feedback log is flushed and closed. Close is
// idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, cancel := range s.pending {
		cancel()
		delete(s.pending, id)
	}
	for _, q := range s.questions {
		if q.state == StateAnswered || q.state == StateFeedbackPending {
			q.state = StateUnrated
		}
	}
	s.mu.Unlock()

	s.logger.Info("session closed", "session", s.id)
	return s.log.Close()
}

func (s *Session) transition(id string, to QuestionState, apply func(*question)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	q, ok := s.questions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
	}
	if !canTransition(q.state, to) {
		return fmt.Errorf("question %s: illegal transition %s -> %s", id, q.state, to)
	}
	apply(q)
	q.state = to
	return nil
}
