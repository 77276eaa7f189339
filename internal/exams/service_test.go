package exams

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"admissions-backend/internal/applications"
	"admissions-backend/internal/evaluator"
	"admissions-backend/internal/universities"
)

type fakeEvaluator struct {
	mu        sync.Mutex
	calls     int
	lastResps map[string][]int
	result    evaluator.Result
	err       error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, attemptID string, responses map[string][]int) (evaluator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastResps = responses
	if f.err != nil {
		return evaluator.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func examQuestions() []universities.Question {
	return []universities.Question{
		{ID: "q1", Text: "Pick one", Type: universities.QuestionSingleChoice, Options: []string{"A", "B", "C"}},
		{ID: "q2", Text: "Pick many", Type: universities.QuestionMultipleChoice, Options: []string{"A", "B", "C", "D"}},
	}
}

func setupExamService(t *testing.T, eval evaluator.Evaluator) (*Service, string) {
	t.Helper()
	uniRepo := universities.NewMemoryRepo()

	uni := universities.University{ID: "uni-1", Name: "Test University", Code: "TU"}
	if err := uniRepo.Create(context.Background(), uni); err != nil {
		t.Fatalf("create university: %v", err)
	}
	cfg := universities.RegistrationConfig{
		UniversityID: uni.ID,
		Steps: []string{
			universities.StepBasicInfo,
			universities.StepEntranceTest,
			universities.StepFinalSubmission,
		},
		TestDurationSeconds: 3600,
		TestQuestions:       examQuestions(),
	}
	if err := uniRepo.SaveConfig(context.Background(), cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	apps := &applications.Service{
		Repo:    applications.NewMemoryRepo(),
		UniRepo: uniRepo,
	}
	app, _, err := apps.Start(context.Background(), uni.ID, "student-1")
	if err != nil {
		t.Fatalf("start application: %v", err)
	}

	svc := &Service{
		Repo:    NewMemoryRepo(),
		Apps:    apps,
		UniRepo: uniRepo,
		Eval:    eval,
	}
	return svc, app.ID
}

func TestStartSingleAttemptPerApplication(t *testing.T) {
	svc, appID := setupExamService(t, &fakeEvaluator{})

	attempt, err := svc.Start(context.Background(), appID, "student-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if attempt.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", attempt.Status)
	}
	if len(attempt.Responses) != 2 {
		t.Fatalf("expected responses initialized for every question, got %v", attempt.Responses)
	}
	for id, selected := range attempt.Responses {
		if len(selected) != 0 {
			t.Fatalf("expected empty response set for %s, got %v", id, selected)
		}
	}

	if _, err := svc.Start(context.Background(), appID, "student-1"); !errors.Is(err, ErrAttemptExists) {
		t.Fatalf("expected ErrAttemptExists, got %v", err)
	}
}

func TestStartWithoutTestConfigured(t *testing.T) {
	uniRepo := universities.NewMemoryRepo()
	uni := universities.University{ID: "uni-2", Name: "No Exam U", Code: "NEU"}
	_ = uniRepo.Create(context.Background(), uni)
	_ = uniRepo.SaveConfig(context.Background(), universities.RegistrationConfig{
		UniversityID: uni.ID,
		Steps:        []string{universities.StepBasicInfo, universities.StepFinalSubmission},
	})
	apps := &applications.Service{Repo: applications.NewMemoryRepo(), UniRepo: uniRepo}
	app, _, _ := apps.Start(context.Background(), uni.ID, "student-1")

	svc := &Service{Repo: NewMemoryRepo(), Apps: apps, UniRepo: uniRepo, Eval: &fakeEvaluator{}}
	if _, err := svc.Start(context.Background(), app.ID, "student-1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSingleChoiceReplacesSelection(t *testing.T) {
	svc, appID := setupExamService(t, &fakeEvaluator{})
	attempt, _ := svc.Start(context.Background(), appID, "student-1")

	if _, err := svc.SelectOption(context.Background(), attempt.ID, "student-1", "q1", 0); err != nil {
		t.Fatalf("select A: %v", err)
	}
	updated, err := svc.SelectOption(context.Background(), attempt.ID, "student-1", "q1", 1)
	if err != nil {
		t.Fatalf("select B: %v", err)
	}

	got := updated.Responses["q1"]
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("single choice must hold exactly the last selection, got %v", got)
	}
}

func TestMultipleChoiceDoubleToggleRestores(t *testing.T) {
	svc, appID := setupExamService(t, &fakeEvaluator{})
	attempt, _ := svc.Start(context.Background(), appID, "student-1")

	if _, err := svc.SelectOption(context.Background(), attempt.ID, "student-1", "q2", 2); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	updated, err := svc.SelectOption(context.Background(), attempt.ID, "student-1", "q2", 2)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}

	if got := updated.Responses["q2"]; len(got) != 0 {
		t.Fatalf("double toggle must restore the original state, got %v", got)
	}
	if updated.AnsweredCount() != 0 {
		t.Fatalf("expected answeredCount 0, got %d", updated.AnsweredCount())
	}
}

func TestSelectOptionValidation(t *testing.T) {
	svc, appID := setupExamService(t, &fakeEvaluator{})
	attempt, _ := svc.Start(context.Background(), appID, "student-1")

	if _, err := svc.SelectOption(context.Background(), attempt.ID, "student-1", "q99", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown question, got %v", err)
	}
	if _, err := svc.SelectOption(context.Background(), attempt.ID, "student-1", "q1", 7); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for out-of-range option, got %v", err)
	}
}

func TestToggleFlag(t *testing.T) {
	svc, appID := setupExamService(t, &fakeEvaluator{})
	attempt, _ := svc.Start(context.Background(), appID, "student-1")

	updated, err := svc.ToggleFlag(context.Background(), attempt.ID, "student-1", "q1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !updated.IsFlagged("q1") {
		t.Fatalf("expected q1 flagged")
	}

	updated, err = svc.ToggleFlag(context.Background(), attempt.ID, "student-1", "q1")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if updated.IsFlagged("q1") {
		t.Fatalf("expected q1 unflagged after second toggle")
	}
}

func TestSubmitEvaluatesAndMarksStep(t *testing.T) {
	eval := &fakeEvaluator{result: evaluator.Result{
		MarksObtained: 5, TotalMarks: 10, Percentage: 50, Correct: 1, Incorrect: 1, Passed: true,
	}}
	svc, appID := setupExamService(t, eval)
	attempt, _ := svc.Start(context.Background(), appID, "student-1")
	_, _ = svc.SelectOption(context.Background(), attempt.ID, "student-1", "q1", 0)

	submitted, err := svc.Submit(context.Background(), attempt.ID, "student-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Status != StatusEvaluated {
		t.Fatalf("expected evaluated after direct evaluation, got %s", submitted.Status)
	}
	if submitted.Result == nil || submitted.Result.Percentage != 50 {
		t.Fatalf("expected result stored, got %+v", submitted.Result)
	}

	app, _ := svc.Apps.GetAny(context.Background(), appID)
	found := false
	for _, key := range app.CompletedSteps {
		if key == universities.StepEntranceTest {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected entrance_test step completed, got %v", app.CompletedSteps)
	}

	// Answers are single-use: a second submit is a state error.
	if _, err := svc.Submit(context.Background(), attempt.ID, "student-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on resubmit, got %v", err)
	}
	if eval.callCount() != 1 {
		t.Fatalf("expected exactly one evaluator call, got %d", eval.callCount())
	}
}

func TestAnswersFrozenAfterSubmit(t *testing.T) {
	svc, appID := setupExamService(t, &fakeEvaluator{})
	attempt, _ := svc.Start(context.Background(), appID, "student-1")
	if _, err := svc.Submit(context.Background(), attempt.ID, "student-1"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.SelectOption(context.Background(), attempt.ID, "student-1", "q1", 0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState selecting after submit, got %v", err)
	}
	if _, err := svc.ToggleFlag(context.Background(), attempt.ID, "student-1", "q1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState flagging after submit, got %v", err)
	}
}

func TestEvaluationFailureLeavesSubmitted(t *testing.T) {
	eval := &fakeEvaluator{err: &evaluator.RemoteError{Status: 503, Message: "maintenance"}}
	svc, appID := setupExamService(t, eval)
	attempt, _ := svc.Start(context.Background(), appID, "student-1")

	submitted, err := svc.Submit(context.Background(), attempt.ID, "student-1")
	if err != nil {
		t.Fatalf("submit must not fail on evaluation failure: %v", err)
	}
	if submitted.Status != StatusSubmittedManually {
		t.Fatalf("expected submitted_manually, got %s", submitted.Status)
	}
	if submitted.EvalError == "" || !submitted.EvalRetryable {
		t.Fatalf("expected a surfaced retryable error, got %+v", submitted)
	}

	// Retry re-runs the evaluation fetch only; the answers stay put.
	eval.mu.Lock()
	eval.err = nil
	eval.result = evaluator.Result{Percentage: 75, Passed: true}
	eval.mu.Unlock()

	retried, err := svc.RetryEvaluation(context.Background(), attempt.ID, "student-1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != StatusEvaluated || retried.Result == nil {
		t.Fatalf("expected evaluated with result, got %+v", retried)
	}
	if retried.EvalError != "" {
		t.Fatalf("expected eval error cleared, got %q", retried.EvalError)
	}
	if eval.callCount() != 2 {
		t.Fatalf("expected two evaluator calls, got %d", eval.callCount())
	}
}

func TestEvaluatorConflictMapsToErrConflict(t *testing.T) {
	eval := &fakeEvaluator{err: evaluator.ErrAlreadySubmitted}
	svc, appID := setupExamService(t, eval)
	attempt, _ := svc.Start(context.Background(), appID, "student-1")
	_, _ = svc.Submit(context.Background(), attempt.ID, "student-1")

	if _, err := svc.RetryEvaluation(context.Background(), attempt.ID, "student-1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTimeoutFinalizesWithEmptyResponses(t *testing.T) {
	eval := &fakeEvaluator{result: evaluator.Result{Unanswered: 2}}
	svc, appID := setupExamService(t, eval)

	now := time.Now().UTC()
	svc.Now = func() time.Time { return now }

	attempt, err := svc.Start(context.Background(), appID, "student-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Drive the clock past the deadline; the next read lazily finalizes.
	svc.Now = func() time.Time { return now.Add(3601 * time.Second) }

	finalized, err := svc.GetForApplication(context.Background(), appID, "student-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if finalized.Status != StatusEvaluated {
		t.Fatalf("expected evaluated after timeout finalize, got %s", finalized.Status)
	}
	if eval.callCount() != 1 {
		t.Fatalf("expected exactly one evaluator call, got %d", eval.callCount())
	}

	// The evaluator received the all-empty responses map.
	eval.mu.Lock()
	defer eval.mu.Unlock()
	if len(eval.lastResps) != 2 {
		t.Fatalf("expected responses for both questions, got %v", eval.lastResps)
	}
	for id, selected := range eval.lastResps {
		if len(selected) != 0 {
			t.Fatalf("expected empty response set for %s, got %v", id, selected)
		}
	}

	// The stored attempt records the timeout submission.
	stored, err := svc.Repo.GetByID(context.Background(), attempt.ID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.SubmittedAt == nil {
		t.Fatalf("expected submittedAt set on timeout")
	}
}

func TestExpiredAttemptRejectsManualSubmit(t *testing.T) {
	svc, appID := setupExamService(t, &fakeEvaluator{})

	now := time.Now().UTC()
	svc.Now = func() time.Time { return now }
	attempt, _ := svc.Start(context.Background(), appID, "student-1")

	svc.Now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := svc.Submit(context.Background(), attempt.ID, "student-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after expiry, got %v", err)
	}

	stored, _ := svc.Repo.GetByID(context.Background(), attempt.ID)
	if stored.Status == StatusInProgress {
		t.Fatalf("expired attempt must not remain in_progress")
	}
}

func TestSweepExpiredFinalizes(t *testing.T) {
	eval := &fakeEvaluator{}
	svc, appID := setupExamService(t, eval)

	now := time.Now().UTC()
	svc.Now = func() time.Time { return now }
	attempt, _ := svc.Start(context.Background(), appID, "student-1")

	svc.Now = func() time.Time { return now.Add(2 * time.Hour) }
	if err := svc.SweepExpired(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	stored, _ := svc.Repo.GetByID(context.Background(), attempt.ID)
	if stored.Status == StatusInProgress {
		t.Fatalf("sweep must finalize expired attempts, got %s", stored.Status)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	svc, appID := setupExamService(t, &fakeEvaluator{})
	attempt, _ := svc.Start(context.Background(), appID, "student-1")

	if _, err := svc.Submit(context.Background(), attempt.ID, "student-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
