package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"admissions-backend/internal/shared/telemetry"
	"admissions-backend/internal/universities"
)

// Service contains business logic for applications and wizard progress.
type Service struct {
	Repo    Repo
	UniRepo universities.Repo
	Policy  NavigationPolicy
}

// Start creates the student's application at a university, or returns the
// existing one. The wizard cannot start without a stored step configuration.
func (s *Service) Start(ctx context.Context, universityID, studentID string) (Application, bool, error) {
	if universityID == "" || studentID == "" {
		return Application{}, false, fmt.Errorf("%w: universityId and studentId are required", ErrInvalidInput)
	}

	cfg, err := s.UniRepo.GetConfig(ctx, universityID)
	if err != nil {
		return Application{}, false, err
	}
	if len(cfg.Steps) == 0 {
		return Application{}, false, ErrNoStepsConfigured
	}

	existing, err := s.Repo.GetForStudent(ctx, universityID, studentID)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return Application{}, false, err
	}

	now := time.Now().UTC()
	app := Application{
		ID:             uuid.NewString(),
		UniversityID:   universityID,
		StudentID:      studentID,
		Status:         StatusDraft,
		CurrentStepKey: cfg.Steps[0],
		CompletedSteps: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Create(ctx, app); err != nil {
		return Application{}, false, err
	}

	telemetry.Info("application.started", map[string]any{
		"application_id": app.ID,
		"university_id":  universityID,
		"student_id":     studentID,
	})
	return app, true, nil
}

// Get returns the application after an ownership check.
func (s *Service) Get(ctx context.Context, applicationID, studentID string) (Application, error) {
	app, err := s.Repo.GetByID(ctx, applicationID)
	if err != nil {
		return Application{}, err
	}
	if app.StudentID != studentID {
		return Application{}, ErrForbidden
	}
	return app, nil
}

// GetAny returns the application without an ownership check, for staff and
// internal collaborators.
func (s *Service) GetAny(ctx context.Context, applicationID string) (Application, error) {
	return s.Repo.GetByID(ctx, applicationID)
}

// List returns all of the student's applications.
func (s *Service) List(ctx context.Context, studentID string) ([]Application, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: studentId is required", ErrInvalidInput)
	}
	return s.Repo.ListByStudent(ctx, studentID)
}

// Sequencer hydrates the step sequencer for an application.
func (s *Service) Sequencer(ctx context.Context, app Application) (*Sequencer, error) {
	cfg, err := s.UniRepo.GetConfig(ctx, app.UniversityID)
	if err != nil {
		return nil, err
	}
	seq, err := NewSequencer(cfg.Steps, app.CurrentStepKey, app.CompletedSteps)
	if err != nil {
		return nil, err
	}
	if s.Policy != nil {
		seq.SetPolicy(s.Policy)
	}
	return seq, nil
}

// GoTo jumps the wizard to the given enabled step.
func (s *Service) GoTo(ctx context.Context, applicationID, studentID, stepKey string) (Application, error) {
	return s.mutateProgress(ctx, applicationID, studentID, func(seq *Sequencer) error {
		if seq.indexOf(stepKey) < 0 {
			return fmt.Errorf("%w: %s", ErrStepNotEnabled, stepKey)
		}
		if !seq.GoTo(stepKey) {
			return fmt.Errorf("%w: %s", ErrNavigationDenied, stepKey)
		}
		return nil
	})
}

// Advance moves to the next enabled step; no-op on the last.
func (s *Service) Advance(ctx context.Context, applicationID, studentID string) (Application, error) {
	return s.mutateProgress(ctx, applicationID, studentID, func(seq *Sequencer) error {
		seq.Advance()
		return nil
	})
}

// Retreat moves to the previous enabled step; no-op on the first.
func (s *Service) Retreat(ctx context.Context, applicationID, studentID string) (Application, error) {
	return s.mutateProgress(ctx, applicationID, studentID, func(seq *Sequencer) error {
		seq.Retreat()
		return nil
	})
}

// SaveBasicInfo stores the basic-info payload and marks the step completed.
func (s *Service) SaveBasicInfo(ctx context.Context, applicationID, studentID string, info BasicInfo) (Application, error) {
	if strings.TrimSpace(info.FullName) == "" || strings.TrimSpace(info.Email) == "" {
		return Application{}, fmt.Errorf("%w: fullName and email are required", ErrInvalidInput)
	}

	app, err := s.editable(ctx, applicationID, studentID)
	if err != nil {
		return Application{}, err
	}

	app.BasicInfo = &info
	return s.completeStep(ctx, app, universities.StepBasicInfo)
}

// SaveEducationalDetails stores the schooling payload and marks the step completed.
func (s *Service) SaveEducationalDetails(ctx context.Context, applicationID, studentID string, details EducationalDetails) (Application, error) {
	if strings.TrimSpace(details.HighestQualification) == "" || strings.TrimSpace(details.Institution) == "" {
		return Application{}, fmt.Errorf("%w: highestQualification and institution are required", ErrInvalidInput)
	}

	app, err := s.editable(ctx, applicationID, studentID)
	if err != nil {
		return Application{}, err
	}

	app.EducationalDetails = &details
	return s.completeStep(ctx, app, universities.StepEducationalDetails)
}

// MarkStepCompleted records a step as done on behalf of a collaborating
// feature (documents checklist, entrance test, payment). Idempotent.
func (s *Service) MarkStepCompleted(ctx context.Context, applicationID, stepKey string) error {
	app, err := s.Repo.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	seq, err := s.Sequencer(ctx, app)
	if err != nil {
		return err
	}
	if seq.IsCompleted(stepKey) {
		return nil
	}
	seq.MarkCompleted(stepKey)
	return s.storeProgress(ctx, app, seq)
}

// MarkStepIncomplete clears a step's completion, e.g. when a document
// rejection regresses the checklist.
func (s *Service) MarkStepIncomplete(ctx context.Context, applicationID, stepKey string) error {
	app, err := s.Repo.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	seq, err := s.Sequencer(ctx, app)
	if err != nil {
		return err
	}
	if !seq.IsCompleted(stepKey) {
		return nil
	}
	seq.MarkIncomplete(stepKey)
	return s.storeProgress(ctx, app, seq)
}

// Submit finalizes the application once every other enabled step is complete.
func (s *Service) Submit(ctx context.Context, applicationID, studentID string) (Application, error) {
	app, err := s.Get(ctx, applicationID, studentID)
	if err != nil {
		return Application{}, err
	}
	if app.Status == StatusSubmitted {
		return Application{}, ErrAlreadySubmitted
	}

	seq, err := s.Sequencer(ctx, app)
	if err != nil {
		return Application{}, err
	}

	if missing := seq.MissingSteps(universities.StepFinalSubmission); len(missing) > 0 {
		return Application{}, &IncompleteStepsError{Missing: missing}
	}

	seq.MarkCompleted(universities.StepFinalSubmission)
	now := time.Now().UTC()
	app.Status = StatusSubmitted
	app.SubmittedAt = &now
	app.CurrentStepKey = seq.CurrentStep()
	app.CompletedSteps = seq.CompletedSteps()
	app.UpdatedAt = now
	if err := s.Repo.Update(ctx, app); err != nil {
		return Application{}, err
	}

	telemetry.Info("application.submitted", map[string]any{
		"application_id": app.ID,
		"university_id":  app.UniversityID,
		"student_id":     app.StudentID,
	})
	return app, nil
}

func (s *Service) editable(ctx context.Context, applicationID, studentID string) (Application, error) {
	app, err := s.Get(ctx, applicationID, studentID)
	if err != nil {
		return Application{}, err
	}
	if app.Status == StatusSubmitted {
		return Application{}, ErrAlreadySubmitted
	}
	return app, nil
}

func (s *Service) mutateProgress(ctx context.Context, applicationID, studentID string, fn func(*Sequencer) error) (Application, error) {
	app, err := s.Get(ctx, applicationID, studentID)
	if err != nil {
		return Application{}, err
	}
	seq, err := s.Sequencer(ctx, app)
	if err != nil {
		return Application{}, err
	}
	if err := fn(seq); err != nil {
		return Application{}, err
	}
	app.CurrentStepKey = seq.CurrentStep()
	app.CompletedSteps = seq.CompletedSteps()
	app.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, app); err != nil {
		return Application{}, err
	}
	return app, nil
}

func (s *Service) completeStep(ctx context.Context, app Application, stepKey string) (Application, error) {
	seq, err := s.Sequencer(ctx, app)
	if err != nil {
		return Application{}, err
	}
	seq.MarkCompleted(stepKey)
	app.CurrentStepKey = seq.CurrentStep()
	app.CompletedSteps = seq.CompletedSteps()
	app.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, app); err != nil {
		return Application{}, err
	}
	return app, nil
}

func (s *Service) storeProgress(ctx context.Context, app Application, seq *Sequencer) error {
	app.CurrentStepKey = seq.CurrentStep()
	app.CompletedSteps = seq.CompletedSteps()
	app.UpdatedAt = time.Now().UTC()
	return s.Repo.Update(ctx, app)
}
