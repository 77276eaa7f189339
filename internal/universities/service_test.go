package universities

import (
	"context"
	"errors"
	"testing"
)

func setupUniversities(t *testing.T) (*Service, University) {
	t.Helper()
	svc := &Service{Repo: NewMemoryRepo()}
	uni, err := svc.Create(context.Background(), "Test University", "TU")
	if err != nil {
		t.Fatalf("create university: %v", err)
	}
	return svc, uni
}

func validConfig(universityID string) RegistrationConfig {
	return RegistrationConfig{
		UniversityID: universityID,
		Steps:        []string{StepBasicInfo, StepDocuments, StepFinalSubmission},
		RequiredDocuments: []RequiredDocument{
			{Name: "marksheet", IsMandatory: true, AllowedTypes: []string{"pdf", "jpg"}, MaxSizeBytes: 1 << 20},
		},
	}
}

func TestCreateNormalizesAndRejectsDuplicateCode(t *testing.T) {
	svc, uni := setupUniversities(t)
	if uni.Code != "tu" {
		t.Fatalf("expected lowercased code, got %q", uni.Code)
	}

	if _, err := svc.Create(context.Background(), "Other", "TU"); !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestSaveConfigHappyPath(t *testing.T) {
	svc, uni := setupUniversities(t)

	saved, err := svc.SaveConfig(context.Background(), validConfig(uni.ID))
	if err != nil {
		t.Fatalf("save config: %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatal("expected updatedAt to be stamped")
	}

	got, err := svc.GetConfig(context.Background(), uni.ID)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if len(got.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %v", got.Steps)
	}
}

func TestStepsMustBeOrderedSubsequence(t *testing.T) {
	svc, uni := setupUniversities(t)

	cases := []struct {
		name  string
		steps []string
	}{
		{"empty", nil},
		{"unknown step", []string{StepBasicInfo, "interview", StepFinalSubmission}},
		{"out of order", []string{StepBasicInfo, StepPayment, StepDocuments, StepFinalSubmission}},
		{"missing basic_info", []string{StepDocuments, StepFinalSubmission}},
		{"missing final_submission", []string{StepBasicInfo, StepDocuments}},
		{"duplicate step", []string{StepBasicInfo, StepDocuments, StepDocuments, StepFinalSubmission}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(uni.ID)
			cfg.Steps = tc.steps
			if _, err := svc.SaveConfig(context.Background(), cfg); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	// The full master list is itself valid.
	cfg := validConfig(uni.ID)
	cfg.Steps = append([]string(nil), MasterSteps...)
	cfg.FeeAmount = 50000
	cfg.TestDurationSeconds = 600
	cfg.TestQuestions = []Question{
		{ID: "q1", Text: "2+2?", Type: QuestionSingleChoice, Options: []string{"3", "4"}},
	}
	if _, err := svc.SaveConfig(context.Background(), cfg); err != nil {
		t.Fatalf("expected master list to validate, got %v", err)
	}
}

func TestDocumentValidation(t *testing.T) {
	svc, uni := setupUniversities(t)

	cfg := validConfig(uni.ID)
	cfg.RequiredDocuments = append(cfg.RequiredDocuments, RequiredDocument{
		Name: "marksheet", AllowedTypes: []string{"pdf"}, MaxSizeBytes: 1 << 20,
	})
	if _, err := svc.SaveConfig(context.Background(), cfg); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected duplicate document rejection, got %v", err)
	}

	cfg = validConfig(uni.ID)
	cfg.RequiredDocuments[0].AllowedTypes = []string{"exe"}
	if _, err := svc.SaveConfig(context.Background(), cfg); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unsupported type rejection, got %v", err)
	}

	cfg = validConfig(uni.ID)
	cfg.RequiredDocuments[0].MaxSizeBytes = 10 << 20
	if _, err := svc.SaveConfig(context.Background(), cfg); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected oversize cap rejection, got %v", err)
	}
}

func TestTestAndFeeValidation(t *testing.T) {
	svc, uni := setupUniversities(t)

	cfg := validConfig(uni.ID)
	cfg.Steps = []string{StepBasicInfo, StepEntranceTest, StepFinalSubmission}
	if _, err := svc.SaveConfig(context.Background(), cfg); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing test setup rejection, got %v", err)
	}

	cfg.TestDurationSeconds = 600
	cfg.TestQuestions = []Question{
		{ID: "q1", Text: "2+2?", Type: QuestionSingleChoice, Options: []string{"4"}},
	}
	if _, err := svc.SaveConfig(context.Background(), cfg); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected single-option rejection, got %v", err)
	}

	cfg.TestQuestions[0].Options = []string{"3", "4"}
	if _, err := svc.SaveConfig(context.Background(), cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	cfg = validConfig(uni.ID)
	cfg.Steps = []string{StepBasicInfo, StepPayment, StepFinalSubmission}
	if _, err := svc.SaveConfig(context.Background(), cfg); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected zero-fee rejection, got %v", err)
	}
}

func TestGetConfigMissingIsHardError(t *testing.T) {
	svc, uni := setupUniversities(t)

	if _, err := svc.GetConfig(context.Background(), uni.ID); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}
