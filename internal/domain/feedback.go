package domain

// FeedbackReasonIrrelevant is the fixed negative-feedback category; any
// other reason text is user-supplied.
const FeedbackReasonIrrelevant = "irrelevant"

// FeedbackRecord is one row of the session feedback log. Exactly one of
// ThumbsUp/ThumbsDown is set.
type FeedbackRecord struct {
	SessionID    string
	Question     string
	Answer       string
	ThumbsUp     bool
	ThumbsDown   bool
	Reason       string
	ResponseTime float64 // seconds
}

// FeedbackSink records user feedback for answered questions.
type FeedbackSink interface {
	Record(snapshot AnswerSnapshot, thumbsUp bool, reason string) error
}
