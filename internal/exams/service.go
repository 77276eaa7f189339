package exams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"admissions-backend/internal/applications"
	"admissions-backend/internal/evaluator"
	"admissions-backend/internal/queue"
	"admissions-backend/internal/shared/metrics"
	"admissions-backend/internal/shared/telemetry"
	"admissions-backend/internal/universities"
)

// Service runs entrance-test attempts. Engine owns the per-attempt countdown;
// the repo-level claim keeps submission single-use even across restarts.
type Service struct {
	Repo    Repo
	Apps    *applications.Service
	UniRepo universities.Repo
	Eval    evaluator.Evaluator
	// Queue, when set, receives evaluation jobs instead of the in-process
	// direct call.
	Queue  queue.Client
	Engine *Engine
	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Start begins the application's single test attempt and starts the clock.
func (s *Service) Start(ctx context.Context, applicationID, studentID string) (Attempt, error) {
	app, err := s.Apps.Get(ctx, applicationID, studentID)
	if err != nil {
		return Attempt{}, err
	}
	if app.Status == applications.StatusSubmitted {
		return Attempt{}, applications.ErrAlreadySubmitted
	}

	cfg, err := s.UniRepo.GetConfig(ctx, app.UniversityID)
	if err != nil {
		return Attempt{}, err
	}
	if !cfg.HasStep(universities.StepEntranceTest) || cfg.TestDurationSeconds <= 0 || len(cfg.TestQuestions) == 0 {
		return Attempt{}, ErrNotConfigured
	}

	now := s.now()
	responses := make(map[string][]int, len(cfg.TestQuestions))
	for _, q := range cfg.TestQuestions {
		responses[q.ID] = []int{}
	}
	attempt := Attempt{
		ID:              uuid.NewString(),
		ApplicationID:   applicationID,
		DurationSeconds: cfg.TestDurationSeconds,
		Questions:       cfg.TestQuestions,
		Responses:       responses,
		Flagged:         []string{},
		Status:          StatusInProgress,
		StartedAt:       now,
		Deadline:        now.Add(time.Duration(cfg.TestDurationSeconds) * time.Second),
	}
	if err := s.Repo.Create(ctx, attempt); err != nil {
		return Attempt{}, err
	}

	if s.Engine != nil {
		s.Engine.Track(attempt.ID, cfg.TestDurationSeconds)
	}
	metrics.IncAttemptStarted()
	telemetry.Info("attempt.started", map[string]any{
		"attempt_id":     attempt.ID,
		"application_id": applicationID,
		"duration_s":     cfg.TestDurationSeconds,
	})
	return attempt, nil
}

// GetForApplication returns the application's attempt, finalizing it first if
// the deadline passed while nobody was looking.
func (s *Service) GetForApplication(ctx context.Context, applicationID, studentID string) (Attempt, error) {
	if _, err := s.Apps.Get(ctx, applicationID, studentID); err != nil {
		return Attempt{}, err
	}
	attempt, err := s.Repo.GetByApplication(ctx, applicationID)
	if err != nil {
		return Attempt{}, err
	}
	return s.finalizeIfExpired(ctx, attempt)
}

// SelectOption records an answer. single_choice replaces the response set;
// multiple_choice toggles membership.
func (s *Service) SelectOption(ctx context.Context, attemptID, studentID, questionID string, optionIndex int) (Attempt, error) {
	attempt, err := s.getInProgress(ctx, attemptID, studentID)
	if err != nil {
		return Attempt{}, err
	}

	question, ok := attempt.QuestionByID(questionID)
	if !ok {
		return Attempt{}, fmt.Errorf("%w: unknown question %q", ErrInvalidInput, questionID)
	}
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return Attempt{}, fmt.Errorf("%w: option index %d out of range", ErrInvalidInput, optionIndex)
	}

	if attempt.Responses == nil {
		attempt.Responses = map[string][]int{}
	}
	switch question.Type {
	case universities.QuestionSingleChoice:
		attempt.Responses[questionID] = []int{optionIndex}
	case universities.QuestionMultipleChoice:
		attempt.Responses[questionID] = toggleIndex(attempt.Responses[questionID], optionIndex)
	default:
		return Attempt{}, fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, question.Type)
	}

	if err := s.Repo.Update(ctx, attempt); err != nil {
		return Attempt{}, err
	}
	return attempt, nil
}

// ToggleFlag toggles the question's mark-for-review flag.
func (s *Service) ToggleFlag(ctx context.Context, attemptID, studentID, questionID string) (Attempt, error) {
	attempt, err := s.getInProgress(ctx, attemptID, studentID)
	if err != nil {
		return Attempt{}, err
	}
	if _, ok := attempt.QuestionByID(questionID); !ok {
		return Attempt{}, fmt.Errorf("%w: unknown question %q", ErrInvalidInput, questionID)
	}

	attempt.Flagged = toggleID(attempt.Flagged, questionID)
	if err := s.Repo.Update(ctx, attempt); err != nil {
		return Attempt{}, err
	}
	return attempt, nil
}

// Submit claims the manual submission. Losing the claim to the timeout path
// is a state error; answers freeze the moment the claim succeeds. Evaluation
// failure is carried on the attempt, never re-raised as a submit failure.
func (s *Service) Submit(ctx context.Context, attemptID, studentID string) (Attempt, error) {
	attempt, err := s.getOwned(ctx, attemptID, studentID)
	if err != nil {
		return Attempt{}, err
	}
	attempt, err = s.finalizeIfExpired(ctx, attempt)
	if err != nil {
		return Attempt{}, err
	}
	if attempt.Status != StatusInProgress {
		return Attempt{}, fmt.Errorf("%w: attempt is %s", ErrInvalidState, attempt.Status)
	}

	if s.Engine != nil && !s.Engine.Claim(attemptID, StatusSubmittedManually) {
		return Attempt{}, fmt.Errorf("%w: attempt already submitted", ErrInvalidState)
	}
	claimed, err := s.Repo.ClaimSubmission(ctx, attemptID, StatusSubmittedManually, s.now())
	if err != nil {
		return Attempt{}, err
	}
	if !claimed {
		return Attempt{}, fmt.Errorf("%w: attempt already submitted", ErrInvalidState)
	}

	metrics.IncAttemptSubmittedManual()
	telemetry.Info("attempt.submitted", map[string]any{
		"attempt_id": attemptID,
		"mode":       "manual",
		"answered":   attempt.AnsweredCount(),
	})

	return s.dispatchEvaluation(ctx, attemptID)
}

// RetryEvaluation re-runs the evaluation fetch for a submitted attempt whose
// result is still outstanding. Answers are never re-sent as a new submission;
// the evaluator treats the attempt as already held.
func (s *Service) RetryEvaluation(ctx context.Context, attemptID, studentID string) (Attempt, error) {
	attempt, err := s.getOwned(ctx, attemptID, studentID)
	if err != nil {
		return Attempt{}, err
	}
	switch attempt.Status {
	case StatusSubmittedManually, StatusSubmittedOnTimeout:
	default:
		return Attempt{}, fmt.Errorf("%w: attempt is %s", ErrInvalidState, attempt.Status)
	}
	return s.Evaluate(ctx, attemptID)
}

// Evaluate calls the external evaluator and stores the outcome. Used by the
// direct path, the retry endpoint and the queue worker.
func (s *Service) Evaluate(ctx context.Context, attemptID string) (Attempt, error) {
	attempt, err := s.Repo.GetByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	switch attempt.Status {
	case StatusSubmittedManually, StatusSubmittedOnTimeout:
	case StatusEvaluated:
		return attempt, nil
	default:
		return Attempt{}, fmt.Errorf("%w: attempt is %s", ErrInvalidState, attempt.Status)
	}

	if s.Eval == nil {
		attempt.EvalError = "evaluator not configured"
		attempt.EvalRetryable = true
		if updateErr := s.Repo.Update(ctx, attempt); updateErr != nil {
			return Attempt{}, updateErr
		}
		metrics.IncEvaluationFailed()
		return attempt, ErrNotConfigured
	}

	started := time.Now()
	result, evalErr := s.Eval.Evaluate(ctx, attempt.ID, attempt.Responses)
	metrics.ObserveEvaluationDurationMs(float64(time.Since(started).Milliseconds()))

	if evalErr != nil {
		attempt.EvalError = evalErr.Error()
		attempt.EvalRetryable = evaluator.IsRetryable(evalErr)
		if updateErr := s.Repo.Update(ctx, attempt); updateErr != nil {
			return Attempt{}, updateErr
		}
		metrics.IncEvaluationFailed()
		telemetry.Warn("attempt.evaluation_failed", map[string]any{
			"attempt_id": attempt.ID,
			"retryable":  attempt.EvalRetryable,
			"error":      evalErr.Error(),
		})
		if errors.Is(evalErr, evaluator.ErrAlreadySubmitted) {
			return attempt, ErrConflict
		}
		return attempt, evalErr
	}

	now := s.now()
	attempt.Result = &result
	attempt.Status = StatusEvaluated
	attempt.EvaluatedAt = &now
	attempt.EvalError = ""
	attempt.EvalRetryable = false
	if err := s.Repo.Update(ctx, attempt); err != nil {
		return Attempt{}, err
	}

	metrics.IncAttemptEvaluated()
	telemetry.Info("attempt.evaluated", map[string]any{
		"attempt_id": attempt.ID,
		"percentage": result.Percentage,
		"passed":     result.Passed,
	})

	if err := s.Apps.MarkStepCompleted(ctx, attempt.ApplicationID, universities.StepEntranceTest); err != nil {
		telemetry.Error("attempt.step_sync_failed", map[string]any{
			"attempt_id": attempt.ID,
			"error":      err.Error(),
		})
	}
	return attempt, nil
}

// FinalizeTimeout claims the timeout submission for an attempt. Safe to call
// from the ticker, the lazy read path and the sweep; only the winner proceeds.
func (s *Service) FinalizeTimeout(ctx context.Context, attemptID string) (Attempt, error) {
	claimed, err := s.Repo.ClaimSubmission(ctx, attemptID, StatusSubmittedOnTimeout, s.now())
	if err != nil {
		return Attempt{}, err
	}
	if !claimed {
		return s.Repo.GetByID(ctx, attemptID)
	}
	if s.Engine != nil {
		s.Engine.Release(attemptID)
	}

	metrics.IncAttemptSubmittedTimeout()
	telemetry.Info("attempt.submitted", map[string]any{
		"attempt_id": attemptID,
		"mode":       "timeout",
	})
	return s.dispatchEvaluation(ctx, attemptID)
}

// SweepExpired finalizes in_progress attempts whose deadline passed, e.g.
// after a restart lost their tickers.
func (s *Service) SweepExpired(ctx context.Context) error {
	expired, err := s.Repo.ListExpiredInProgress(ctx, s.now())
	if err != nil {
		return err
	}
	for _, attempt := range expired {
		if _, err := s.FinalizeTimeout(ctx, attempt.ID); err != nil {
			telemetry.Error("attempt.sweep_failed", map[string]any{
				"attempt_id": attempt.ID,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

// ExpireHook adapts FinalizeTimeout for the session engine.
func (s *Service) ExpireHook() ExpireFunc {
	return func(attemptID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.FinalizeTimeout(ctx, attemptID); err != nil {
			telemetry.Error("attempt.timeout_finalize_failed", map[string]any{
				"attempt_id": attemptID,
				"error":      err.Error(),
			})
		}
	}
}

func (s *Service) dispatchEvaluation(ctx context.Context, attemptID string) (Attempt, error) {
	if s.Queue != nil {
		msg := queue.Message{
			AttemptID:  attemptID,
			RequestID:  uuid.NewString(),
			EnqueuedAt: s.now().Format(time.RFC3339),
			Version:    1,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			telemetry.Error("attempt.enqueue_failed", map[string]any{
				"attempt_id": attemptID,
				"error":      err.Error(),
			})
		}
		return s.Repo.GetByID(ctx, attemptID)
	}

	attempt, evalErr := s.Evaluate(ctx, attemptID)
	if evalErr != nil {
		// Submission stands; the evaluation failure rides on the attempt.
		return s.Repo.GetByID(ctx, attemptID)
	}
	return attempt, nil
}

func (s *Service) getOwned(ctx context.Context, attemptID, studentID string) (Attempt, error) {
	attempt, err := s.Repo.GetByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	app, err := s.Apps.GetAny(ctx, attempt.ApplicationID)
	if err != nil {
		return Attempt{}, err
	}
	if app.StudentID != studentID {
		return Attempt{}, ErrForbidden
	}
	return attempt, nil
}

func (s *Service) getInProgress(ctx context.Context, attemptID, studentID string) (Attempt, error) {
	attempt, err := s.getOwned(ctx, attemptID, studentID)
	if err != nil {
		return Attempt{}, err
	}
	attempt, err = s.finalizeIfExpired(ctx, attempt)
	if err != nil {
		return Attempt{}, err
	}
	if attempt.Status != StatusInProgress {
		return Attempt{}, fmt.Errorf("%w: attempt is %s", ErrInvalidState, attempt.Status)
	}
	return attempt, nil
}

func (s *Service) finalizeIfExpired(ctx context.Context, attempt Attempt) (Attempt, error) {
	if attempt.Status != StatusInProgress || !attempt.Expired(s.now()) {
		return attempt, nil
	}
	return s.FinalizeTimeout(ctx, attempt.ID)
}

func toggleIndex(selected []int, idx int) []int {
	for i, existing := range selected {
		if existing == idx {
			return append(selected[:i], selected[i+1:]...)
		}
	}
	return append(selected, idx)
}

func toggleID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return append(ids, id)
}
