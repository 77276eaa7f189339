package exams

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"admissions-backend/internal/evaluator"
)

// PGRepo implements Repo using Postgres. The UNIQUE constraint on
// application_id backs the one-attempt-per-application rule.
type PGRepo struct {
	DB *sql.DB
}

const attemptColumns = `
id, application_id, duration_seconds, questions, responses, flagged, status,
started_at, deadline, submitted_at, result, evaluated_at, eval_error, eval_retryable`

// Create inserts a new attempt.
func (r *PGRepo) Create(ctx context.Context, attempt Attempt) error {
	const query = `
INSERT INTO test_attempts (
    id, application_id, duration_seconds, questions, responses, flagged, status,
    started_at, deadline, submitted_at, result, evaluated_at, eval_error, eval_retryable
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	questions, responses, flagged, result, err := marshalAttempt(attempt)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		attempt.ID, attempt.ApplicationID, attempt.DurationSeconds,
		questions, responses, flagged, attempt.Status,
		attempt.StartedAt, attempt.Deadline, attempt.SubmittedAt,
		result, attempt.EvaluatedAt, attempt.EvalError, attempt.EvalRetryable)
	if err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key")) {
		return ErrAttemptExists
	}
	return err
}

// GetByID returns an attempt by ID.
func (r *PGRepo) GetByID(ctx context.Context, attemptID string) (Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts WHERE id = $1`
	return scanAttempt(r.DB.QueryRowContext(ctx, query, attemptID))
}

// GetByApplication returns the application's attempt.
func (r *PGRepo) GetByApplication(ctx context.Context, applicationID string) (Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts WHERE application_id = $1`
	return scanAttempt(r.DB.QueryRowContext(ctx, query, applicationID))
}

// Update replaces the mutable columns of an attempt.
func (r *PGRepo) Update(ctx context.Context, attempt Attempt) error {
	const query = `
UPDATE test_attempts SET
    responses = $2,
    flagged = $3,
    status = $4,
    submitted_at = $5,
    result = $6,
    evaluated_at = $7,
    eval_error = $8,
    eval_retryable = $9
WHERE id = $1`

	_, responses, flagged, result, err := marshalAttempt(attempt)
	if err != nil {
		return err
	}

	res, err := r.DB.ExecContext(ctx, query,
		attempt.ID, responses, flagged, attempt.Status, attempt.SubmittedAt,
		result, attempt.EvaluatedAt, attempt.EvalError, attempt.EvalRetryable)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimSubmission performs the status transition guarded on in_progress, so
// concurrent submit paths resolve to exactly one winner.
func (r *PGRepo) ClaimSubmission(ctx context.Context, attemptID, status string, submittedAt time.Time) (bool, error) {
	const query = `
UPDATE test_attempts SET status = $2, submitted_at = $3
WHERE id = $1 AND status = 'in_progress'`

	res, err := r.DB.ExecContext(ctx, query, attemptID, status, submittedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM test_attempts WHERE id = $1)`, attemptID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// ListExpiredInProgress returns in_progress attempts past their deadline.
func (r *PGRepo) ListExpiredInProgress(ctx context.Context, now time.Time) ([]Attempt, error) {
	query := `SELECT ` + attemptColumns + `
FROM test_attempts
WHERE status = 'in_progress' AND deadline <= $1
ORDER BY deadline`
	rows, err := r.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		attempt, err := scanAttemptRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

func marshalAttempt(attempt Attempt) (questions, responses, flagged, result []byte, err error) {
	if questions, err = json.Marshal(attempt.Questions); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal questions: %w", err)
	}
	if attempt.Responses == nil {
		attempt.Responses = map[string][]int{}
	}
	if responses, err = json.Marshal(attempt.Responses); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal responses: %w", err)
	}
	if attempt.Flagged == nil {
		attempt.Flagged = []string{}
	}
	if flagged, err = json.Marshal(attempt.Flagged); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal flagged: %w", err)
	}
	if attempt.Result != nil {
		if result, err = json.Marshal(attempt.Result); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshal result: %w", err)
		}
	}
	return questions, responses, flagged, result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row *sql.Row) (Attempt, error) {
	attempt, err := scanAttemptRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	return attempt, nil
}

func scanAttemptRows(row rowScanner) (Attempt, error) {
	var attempt Attempt
	var questions, responses, flagged, result []byte
	var submittedAt, evaluatedAt sql.NullTime

	err := row.Scan(
		&attempt.ID, &attempt.ApplicationID, &attempt.DurationSeconds,
		&questions, &responses, &flagged, &attempt.Status,
		&attempt.StartedAt, &attempt.Deadline, &submittedAt,
		&result, &evaluatedAt, &attempt.EvalError, &attempt.EvalRetryable)
	if err != nil {
		return Attempt{}, err
	}

	if err := json.Unmarshal(questions, &attempt.Questions); err != nil {
		return Attempt{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	if err := json.Unmarshal(responses, &attempt.Responses); err != nil {
		return Attempt{}, fmt.Errorf("unmarshal responses: %w", err)
	}
	if err := json.Unmarshal(flagged, &attempt.Flagged); err != nil {
		return Attempt{}, fmt.Errorf("unmarshal flagged: %w", err)
	}
	if len(result) > 0 {
		attempt.Result = &evaluator.Result{}
		if err := json.Unmarshal(result, attempt.Result); err != nil {
			return Attempt{}, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if submittedAt.Valid {
		attempt.SubmittedAt = &submittedAt.Time
	}
	if evaluatedAt.Valid {
		attempt.EvaluatedAt = &evaluatedAt.Time
	}
	return attempt, nil
}
