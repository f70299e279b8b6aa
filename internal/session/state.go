package session

import "fmt"

// QuestionState tracks a question through its lifecycle. Feedback is only
// accepted once an answer exists, and a recorded rating is final.
type QuestionState int

const (
	StateSubmitted QuestionState = iota
	StateAnswering
	StateAnswered
	StateFeedbackPending
	StateFeedbackRecorded
	StateUnrated
)

func (s QuestionState) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateAnswering:
		return "answering"
	case StateAnswered:
		return "answered"
	case StateFeedbackPending:
		return "feedback_pending"
	case StateFeedbackRecorded:
		return "feedback_recorded"
	case StateUnrated:
		return "unrated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// canTransition encodes the legal lifecycle edges. Terminal states
// (FeedbackRecorded, Unrated) have no outgoing edges.
func canTransition(from, to QuestionState) bool {
	switch from {
	case StateSubmitted:
		return to == StateAnswering
	case StateAnswering:
		return to == StateAnswered
	case StateAnswered:
		return to == StateFeedbackPending || to == StateFeedbackRecorded || to == StateUnrated
	case StateFeedbackPending:
		return to == StateFeedbackRecorded || to == StateUnrated
	default:
		return false
	}
}
