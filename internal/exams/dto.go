package exams

import (
	"time"

	"admissions-backend/internal/evaluator"
)

// AnswerRequest records one option selection.
type AnswerRequest struct {
	QuestionID  string `json:"questionId" binding:"required"`
	OptionIndex *int   `json:"optionIndex" binding:"required"`
}

// FlagRequest toggles a question's review flag.
type FlagRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
}

// QuestionResponse is one question as shown to the student. Correct answers
// never pass through this service.
type QuestionResponse struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
	Selected []int    `json:"selected"`
	Flagged  bool     `json:"flagged"`
}

// AttemptResponse is the full attempt view.
type AttemptResponse struct {
	ID               string             `json:"id"`
	ApplicationID    string             `json:"applicationId"`
	Status           string             `json:"status"`
	DurationSeconds  int                `json:"durationSeconds"`
	RemainingSeconds int                `json:"remainingSeconds"`
	AnsweredCount    int                `json:"answeredCount"`
	Questions        []QuestionResponse `json:"questions"`
	StartedAt        time.Time          `json:"startedAt"`
	SubmittedAt      *time.Time         `json:"submittedAt,omitempty"`
	Result           *evaluator.Result  `json:"result,omitempty"`
	EvalError        string             `json:"evalError,omitempty"`
	EvalRetryable    bool               `json:"evalRetryable,omitempty"`
}

func toAttemptResponse(attempt Attempt, now time.Time) AttemptResponse {
	questions := make([]QuestionResponse, 0, len(attempt.Questions))
	for _, q := range attempt.Questions {
		selected := attempt.Responses[q.ID]
		if selected == nil {
			selected = []int{}
		}
		questions = append(questions, QuestionResponse{
			ID:       q.ID,
			Text:     q.Text,
			Type:     q.Type,
			Options:  q.Options,
			Selected: selected,
			Flagged:  attempt.IsFlagged(q.ID),
		})
	}
	return AttemptResponse{
		ID:               attempt.ID,
		ApplicationID:    attempt.ApplicationID,
		Status:           attempt.Status,
		DurationSeconds:  attempt.DurationSeconds,
		RemainingSeconds: attempt.RemainingSeconds(now),
		AnsweredCount:    attempt.AnsweredCount(),
		Questions:        questions,
		StartedAt:        attempt.StartedAt,
		SubmittedAt:      attempt.SubmittedAt,
		Result:           attempt.Result,
		EvalError:        attempt.EvalError,
		EvalRetryable:    attempt.EvalRetryable,
	}
}
