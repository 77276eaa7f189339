package applications

import (
	"context"
	"errors"
	"testing"

	"admissions-backend/internal/universities"
)

func setupService(t *testing.T, steps []string) (*Service, string) {
	t.Helper()
	uniRepo := universities.NewMemoryRepo()

	uni := universities.University{ID: "uni-1", Name: "Test University", Code: "TU"}
	if err := uniRepo.Create(context.Background(), uni); err != nil {
		t.Fatalf("create university: %v", err)
	}
	cfg := universities.RegistrationConfig{
		UniversityID: uni.ID,
		Steps:        steps,
	}
	if err := uniRepo.SaveConfig(context.Background(), cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	svc := &Service{
		Repo:    NewMemoryRepo(),
		UniRepo: uniRepo,
	}
	return svc, uni.ID
}

func TestStartIsIdempotentPerStudent(t *testing.T) {
	svc, uniID := setupService(t, threeSteps())

	first, created, err := svc.Start(context.Background(), uniID, "student-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !created {
		t.Fatalf("first start must create")
	}
	if first.CurrentStepKey != universities.StepBasicInfo {
		t.Fatalf("new application must begin on the first enabled step, got %s", first.CurrentStepKey)
	}

	second, created, err := svc.Start(context.Background(), uniID, "student-1")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if created {
		t.Fatalf("second start must return the existing application")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same application, got %s and %s", first.ID, second.ID)
	}
}

func TestStartWithoutConfigFails(t *testing.T) {
	svc := &Service{
		Repo:    NewMemoryRepo(),
		UniRepo: universities.NewMemoryRepo(),
	}

	_, _, err := svc.Start(context.Background(), "uni-missing", "student-1")
	if !errors.Is(err, universities.ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, uniID := setupService(t, threeSteps())
	app, _, _ := svc.Start(context.Background(), uniID, "student-1")

	if _, err := svc.Get(context.Background(), app.ID, "student-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSaveBasicInfoMarksStepComplete(t *testing.T) {
	svc, uniID := setupService(t, threeSteps())
	app, _, _ := svc.Start(context.Background(), uniID, "student-1")

	updated, err := svc.SaveBasicInfo(context.Background(), app.ID, "student-1", BasicInfo{
		FullName: "Asha Rao",
		Email:    "asha@example.com",
		Phone:    "+911234567890",
	})
	if err != nil {
		t.Fatalf("save basic info: %v", err)
	}

	found := false
	for _, key := range updated.CompletedSteps {
		if key == universities.StepBasicInfo {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected basic_info in completed steps, got %v", updated.CompletedSteps)
	}
	if updated.BasicInfo == nil || updated.BasicInfo.FullName != "Asha Rao" {
		t.Fatalf("expected basic info payload to persist")
	}
}

func TestGoToDisabledStep(t *testing.T) {
	svc, uniID := setupService(t, threeSteps())
	app, _, _ := svc.Start(context.Background(), uniID, "student-1")

	_, err := svc.GoTo(context.Background(), app.ID, "student-1", universities.StepEntranceTest)
	if !errors.Is(err, ErrStepNotEnabled) {
		t.Fatalf("expected ErrStepNotEnabled, got %v", err)
	}
}

func TestSubmitBlockedUntilStepsComplete(t *testing.T) {
	svc, uniID := setupService(t, threeSteps())
	app, _, _ := svc.Start(context.Background(), uniID, "student-1")

	_, err := svc.Submit(context.Background(), app.ID, "student-1")
	if !errors.Is(err, ErrStepsIncomplete) {
		t.Fatalf("expected ErrStepsIncomplete, got %v", err)
	}

	var incomplete *IncompleteStepsError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteStepsError, got %T", err)
	}
	if len(incomplete.Missing) != 2 {
		t.Fatalf("expected basic_info and documents missing, got %v", incomplete.Missing)
	}
}

func TestSubmitHappyPathAndResubmit(t *testing.T) {
	svc, uniID := setupService(t, threeSteps())
	app, _, _ := svc.Start(context.Background(), uniID, "student-1")

	if _, err := svc.SaveBasicInfo(context.Background(), app.ID, "student-1", BasicInfo{
		FullName: "Asha Rao",
		Email:    "asha@example.com",
		Phone:    "+911234567890",
	}); err != nil {
		t.Fatalf("save basic info: %v", err)
	}
	if err := svc.MarkStepCompleted(context.Background(), app.ID, universities.StepDocuments); err != nil {
		t.Fatalf("mark documents complete: %v", err)
	}

	submitted, err := svc.Submit(context.Background(), app.ID, "student-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Status != StatusSubmitted {
		t.Fatalf("expected submitted status, got %s", submitted.Status)
	}
	if submitted.SubmittedAt == nil {
		t.Fatalf("expected submittedAt to be set")
	}

	if _, err := svc.Submit(context.Background(), app.ID, "student-1"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestSubmittedApplicationIsLocked(t *testing.T) {
	svc, uniID := setupService(t, threeSteps())
	app, _, _ := svc.Start(context.Background(), uniID, "student-1")

	if _, err := svc.SaveBasicInfo(context.Background(), app.ID, "student-1", BasicInfo{
		FullName: "Asha Rao",
		Email:    "asha@example.com",
		Phone:    "+911234567890",
	}); err != nil {
		t.Fatalf("save basic info: %v", err)
	}
	if err := svc.MarkStepCompleted(context.Background(), app.ID, universities.StepDocuments); err != nil {
		t.Fatalf("mark documents complete: %v", err)
	}
	if _, err := svc.Submit(context.Background(), app.ID, "student-1"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := svc.SaveBasicInfo(context.Background(), app.ID, "student-1", BasicInfo{
		FullName: "Changed",
		Email:    "changed@example.com",
		Phone:    "+911234567890",
	})
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted on edit after submit, got %v", err)
	}
}

func TestMarkStepIncompleteClearsCompletion(t *testing.T) {
	svc, uniID := setupService(t, threeSteps())
	app, _, _ := svc.Start(context.Background(), uniID, "student-1")

	if err := svc.MarkStepCompleted(context.Background(), app.ID, universities.StepDocuments); err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	if err := svc.MarkStepIncomplete(context.Background(), app.ID, universities.StepDocuments); err != nil {
		t.Fatalf("mark incomplete: %v", err)
	}

	got, err := svc.GetAny(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, key := range got.CompletedSteps {
		if key == universities.StepDocuments {
			t.Fatalf("documents must no longer be completed, got %v", got.CompletedSteps)
		}
	}
}
