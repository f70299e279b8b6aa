package domain

import "time"

// InboundMessage is a user question submitted through a channel.
type InboundMessage struct {
	Channel   string
	ChatID    string
	SenderID  string
	Content   string
	Timestamp time.Time
}

// OutboundMessage is text delivered back to a channel. Answers carry a
// Snapshot so feedback recording does not depend on channel state that may
// be gone by the time the user reacts.
type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	Snapshot *AnswerSnapshot
}

// AnswerSnapshot is an immutable record of one answered question. It is
// everything a feedback event needs: the channel hands it back verbatim
// when the user rates the answer.
type AnswerSnapshot struct {
	RequestID string
	Question  string
	Answer    string
	Elapsed   time.Duration
	NoContext bool
}

// ElapsedSeconds returns the response latency in seconds, matching the
// precision recorded in the feedback log.
func (s AnswerSnapshot) ElapsedSeconds() float64 {
	return s.Elapsed.Seconds()
}
