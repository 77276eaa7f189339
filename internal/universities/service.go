package universities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxFileSizeBytes = 5 << 20 // 5MB ceiling on any configured document size

var allowedDocumentTypes = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// Service contains business logic for universities and their configuration.
type Service struct {
	Repo Repo
}

// Create registers a new university tenant.
func (s *Service) Create(ctx context.Context, name, code string) (University, error) {
	name = strings.TrimSpace(name)
	code = strings.ToLower(strings.TrimSpace(code))
	if name == "" || code == "" {
		return University{}, fmt.Errorf("%w: name and code are required", ErrInvalidInput)
	}

	if _, err := s.Repo.GetByCode(ctx, code); err == nil {
		return University{}, ErrDuplicateCode
	}

	u := University{
		ID:        uuid.NewString(),
		Name:      name,
		Code:      code,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return University{}, err
	}
	return u, nil
}

// Get returns a university by ID.
func (s *Service) Get(ctx context.Context, id string) (University, error) {
	if id == "" {
		return University{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns universities newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]University, error) {
	return s.Repo.List(ctx, limit, offset)
}

// SaveConfig validates and stores a university's registration configuration.
func (s *Service) SaveConfig(ctx context.Context, cfg RegistrationConfig) (RegistrationConfig, error) {
	if cfg.UniversityID == "" {
		return RegistrationConfig{}, fmt.Errorf("%w: universityId is required", ErrInvalidInput)
	}
	if _, err := s.Repo.GetByID(ctx, cfg.UniversityID); err != nil {
		return RegistrationConfig{}, err
	}
	if err := validateSteps(cfg.Steps); err != nil {
		return RegistrationConfig{}, err
	}
	if err := validateRequiredDocuments(cfg.RequiredDocuments); err != nil {
		return RegistrationConfig{}, err
	}
	if err := validateTestSetup(cfg); err != nil {
		return RegistrationConfig{}, err
	}
	if cfg.HasStep(StepPayment) && cfg.FeeAmount <= 0 {
		return RegistrationConfig{}, fmt.Errorf("%w: feeAmount must be positive when the payment step is enabled", ErrInvalidInput)
	}

	cfg.UpdatedAt = time.Now().UTC()
	if err := s.Repo.SaveConfig(ctx, cfg); err != nil {
		return RegistrationConfig{}, err
	}
	return cfg, nil
}

// GetConfig returns the stored registration config. A missing config is a hard
// error: there is no fallback step list.
func (s *Service) GetConfig(ctx context.Context, universityID string) (RegistrationConfig, error) {
	if universityID == "" {
		return RegistrationConfig{}, fmt.Errorf("%w: universityId is required", ErrInvalidInput)
	}
	return s.Repo.GetConfig(ctx, universityID)
}

// validateSteps enforces that the enabled steps form a strict ordered
// subsequence of MasterSteps and include basic_info and final_submission.
func validateSteps(steps []string) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: at least one step must be enabled", ErrInvalidInput)
	}

	cursor := 0
	for _, step := range steps {
		found := false
		for cursor < len(MasterSteps) {
			if MasterSteps[cursor] == step {
				found = true
				cursor++
				break
			}
			cursor++
		}
		if !found {
			return fmt.Errorf("%w: step %q is unknown or out of order", ErrInvalidInput, step)
		}
	}

	if steps[0] != StepBasicInfo {
		return fmt.Errorf("%w: basic_info must be enabled first", ErrInvalidInput)
	}
	if steps[len(steps)-1] != StepFinalSubmission {
		return fmt.Errorf("%w: final_submission must be enabled last", ErrInvalidInput)
	}
	return nil
}

func validateRequiredDocuments(docs []RequiredDocument) error {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return fmt.Errorf("%w: document name is required", ErrInvalidInput)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate document %q", ErrInvalidInput, name)
		}
		seen[name] = struct{}{}

		if len(d.AllowedTypes) == 0 {
			return fmt.Errorf("%w: document %q needs at least one allowed type", ErrInvalidInput, name)
		}
		for _, t := range d.AllowedTypes {
			if _, ok := allowedDocumentTypes[strings.ToLower(t)]; !ok {
				return fmt.Errorf("%w: document %q has unsupported type %q", ErrInvalidInput, name, t)
			}
		}
		if d.MaxSizeBytes <= 0 || d.MaxSizeBytes > maxFileSizeBytes {
			return fmt.Errorf("%w: document %q max size must be between 1 byte and 5MB", ErrInvalidInput, name)
		}
	}
	return nil
}

func validateTestSetup(cfg RegistrationConfig) error {
	if !cfg.HasStep(StepEntranceTest) {
		return nil
	}
	if cfg.TestDurationSeconds <= 0 {
		return fmt.Errorf("%w: testDurationSeconds must be positive when the entrance test is enabled", ErrInvalidInput)
	}
	if len(cfg.TestQuestions) == 0 {
		return fmt.Errorf("%w: at least one test question is required when the entrance test is enabled", ErrInvalidInput)
	}
	for i, q := range cfg.TestQuestions {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question %d needs id and text", ErrInvalidInput, i)
		}
		if q.Type != QuestionSingleChoice && q.Type != QuestionMultipleChoice {
			return fmt.Errorf("%w: question %q has unknown type %q", ErrInvalidInput, q.ID, q.Type)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %q needs at least two options", ErrInvalidInput, q.ID)
		}
	}
	return nil
}
