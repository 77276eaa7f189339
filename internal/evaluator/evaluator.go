package evaluator

import (
	"context"
	"errors"
	"fmt"
)

// Result is the scoring summary produced by the external evaluator. Scoring
// rules (marks, negative marking, pass threshold) live entirely on the
// evaluator side.
type Result struct {
	MarksObtained float64 `json:"marksObtained"`
	TotalMarks    float64 `json:"totalMarks"`
	Percentage    float64 `json:"percentage"`
	Correct       int     `json:"correct"`
	Incorrect     int     `json:"incorrect"`
	Unanswered    int     `json:"unanswered"`
	Passed        bool    `json:"passed"`
}

// Evaluator scores a submitted attempt. Responses map question IDs to the
// selected option indices.
type Evaluator interface {
	Evaluate(ctx context.Context, attemptID string, responses map[string][]int) (Result, error)
}

var (
	// ErrValidation means the evaluator refused the payload.
	ErrValidation = errors.New("evaluator rejected the payload")
	// ErrNotFound means the evaluator does not know the attempt.
	ErrNotFound = errors.New("attempt not known to evaluator")
	// ErrAlreadySubmitted means the evaluator already holds answers for the
	// attempt; answers are single-use and must never be re-sent.
	ErrAlreadySubmitted = errors.New("attempt already submitted to evaluator")
)

// RemoteError is a network or server-side failure. A zero status means the
// request never reached the evaluator.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("evaluator unreachable: %s", e.Message)
	}
	return fmt.Sprintf("evaluator returned %d: %s", e.Status, e.Message)
}

// Retryable reports whether a later retry of the evaluation fetch may succeed.
func (e *RemoteError) Retryable() bool {
	return e.Status == 0 || e.Status >= 500
}

// IsRetryable reports whether err is a retryable remote failure.
func IsRetryable(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.Retryable()
}
