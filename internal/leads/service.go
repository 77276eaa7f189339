package leads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"admissions-backend/internal/shared/telemetry"
	"admissions-backend/internal/universities"
)

// Service contains business logic for the counselling pipeline.
type Service struct {
	Repo    Repo
	UniRepo universities.Repo
}

// Create registers a new lead in the new stage.
func (s *Service) Create(ctx context.Context, universityID, name, email, phone, source string) (Lead, error) {
	if strings.TrimSpace(name) == "" {
		return Lead{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := s.UniRepo.GetByID(ctx, universityID); err != nil {
		return Lead{}, err
	}

	now := time.Now().UTC()
	lead := Lead{
		ID:           uuid.NewString(),
		UniversityID: universityID,
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		Phone:        strings.TrimSpace(phone),
		Source:       source,
		Stage:        StageNew,
		Notes:        []Note{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, lead); err != nil {
		return Lead{}, err
	}

	telemetry.Info("lead.created", map[string]any{
		"lead_id":       lead.ID,
		"university_id": universityID,
		"source":        source,
	})
	return lead, nil
}

// List returns a university's leads with optional stage/assignee filters.
func (s *Service) List(ctx context.Context, universityID string, filter Filter) ([]Lead, error) {
	return s.Repo.List(ctx, universityID, filter)
}

// Get returns a lead scoped to the caller's university.
func (s *Service) Get(ctx context.Context, leadID, universityID string) (Lead, error) {
	lead, err := s.Repo.GetByID(ctx, leadID)
	if err != nil {
		return Lead{}, err
	}
	if universityID != "" && lead.UniversityID != universityID {
		return Lead{}, ErrForbidden
	}
	return lead, nil
}

// Assign hands the lead to a counsellor.
func (s *Service) Assign(ctx context.Context, leadID, universityID, counsellorID string) (Lead, error) {
	if counsellorID == "" {
		return Lead{}, fmt.Errorf("%w: counsellorId is required", ErrInvalidInput)
	}
	lead, err := s.Get(ctx, leadID, universityID)
	if err != nil {
		return Lead{}, err
	}

	lead.AssignedTo = counsellorID
	lead.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, lead); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// AdvanceStage moves the lead along the pipeline. Jumps outside the allowed
// transitions are rejected.
func (s *Service) AdvanceStage(ctx context.Context, leadID, universityID, stage string) (Lead, error) {
	lead, err := s.Get(ctx, leadID, universityID)
	if err != nil {
		return Lead{}, err
	}
	if !CanTransition(lead.Stage, stage) {
		return Lead{}, fmt.Errorf("%w: %s -> %s", ErrInvalidState, lead.Stage, stage)
	}

	lead.Stage = stage
	lead.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, lead); err != nil {
		return Lead{}, err
	}

	telemetry.Info("lead.stage_changed", map[string]any{
		"lead_id": lead.ID,
		"stage":   stage,
	})
	return lead, nil
}

// AddNote appends a counsellor remark.
func (s *Service) AddNote(ctx context.Context, leadID, universityID, authorID, text string) (Lead, error) {
	if strings.TrimSpace(text) == "" {
		return Lead{}, fmt.Errorf("%w: note text is required", ErrInvalidInput)
	}
	lead, err := s.Get(ctx, leadID, universityID)
	if err != nil {
		return Lead{}, err
	}

	lead.Notes = append(lead.Notes, Note{
		AuthorID:  authorID,
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	})
	lead.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, lead); err != nil {
		return Lead{}, err
	}
	return lead, nil
}
