package exams

import (
	"time"

	"admissions-backend/internal/evaluator"
	"admissions-backend/internal/universities"
)

// Attempt statuses. not_started is never stored; it is the reported state
// while no attempt exists for an application.
const (
	StatusNotStarted         = "not_started"
	StatusInProgress         = "in_progress"
	StatusSubmittedManually  = "submitted_manually"
	StatusSubmittedOnTimeout = "submitted_on_timeout"
	StatusEvaluated          = "evaluated"
)

// Attempt is one single-use run of the entrance test for an application.
// Responses map question IDs to selected option indices; flagged holds
// question IDs marked for review. Both freeze when status leaves in_progress.
type Attempt struct {
	ID              string
	ApplicationID   string
	DurationSeconds int
	Questions       []universities.Question
	Responses       map[string][]int
	Flagged         []string
	Status          string
	StartedAt       time.Time
	Deadline        time.Time
	SubmittedAt     *time.Time
	EvaluatedAt     *time.Time
	Result          *evaluator.Result
	EvalError       string
	EvalRetryable   bool
}

// RemainingSeconds reports the seconds left on the clock at the given time.
func (a Attempt) RemainingSeconds(now time.Time) int {
	if a.Status != StatusInProgress {
		return 0
	}
	left := int(a.Deadline.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the deadline has passed.
func (a Attempt) Expired(now time.Time) bool {
	return !now.Before(a.Deadline)
}

// AnsweredCount counts questions with a non-empty response set. This is the
// only scoring-adjacent number computed locally; everything else comes from
// the evaluator.
func (a Attempt) AnsweredCount() int {
	n := 0
	for _, selected := range a.Responses {
		if len(selected) > 0 {
			n++
		}
	}
	return n
}

// QuestionByID returns the question with the given ID.
func (a Attempt) QuestionByID(questionID string) (universities.Question, bool) {
	for _, q := range a.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return universities.Question{}, false
}

// IsFlagged reports whether the question is marked for review.
func (a Attempt) IsFlagged(questionID string) bool {
	for _, id := range a.Flagged {
		if id == questionID {
			return true
		}
	}
	return false
}
