package session

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"unibot/internal/domain"
)

// feedbackHeader is the fixed column layout of the feedback log. Existing
// tooling parses these files, so the header must not change.
var feedbackHeader = []string{
	"ID", "Question", "Answer", "Thumbsup", "Thumbsdown", "Thumbsdown_reason", "ResponseTime",
}

// FeedbackLog is one session's CSV file under the feedback directory. The
// header is written once at creation; every feedback event appends one row.
type FeedbackLog struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
	path string
}

// NewFeedbackLog creates user-testing-<sessionID>.csv in dir and writes the
// header. The directory is created if missing.
func NewFeedbackLog(dir, sessionID string) (*FeedbackLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create feedback dir: %w", err)
	}
	path := filepath.Join(dir, "user-testing-"+sessionID+".csv")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create feedback log: %w", err)
	}

	l := &FeedbackLog{file: file, w: csv.NewWriter(file), path: path}
	if err := l.w.Write(feedbackHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("write feedback header: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("flush feedback header: %w", err)
	}
	return l, nil
}

// Path returns the log file location.
func (l *FeedbackLog) Path() string { return l.path }

// Append writes one feedback row and flushes it to disk so a crash cannot
// lose recorded feedback.
func (l *FeedbackLog) Append(rec domain.FeedbackRecord) error {
	row := []string{
		rec.SessionID,
		rec.Question,
		rec.Answer,
		boolFlag(rec.ThumbsUp),
		boolFlag(rec.ThumbsDown),
		rec.Reason,
		strconv.FormatFloat(rec.ResponseTime, 'f', 2, 64),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("write feedback row: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("flush feedback row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *FeedbackLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
