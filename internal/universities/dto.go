package universities

import "time"

// UniversityResponse is the outward-facing representation of a university.
type UniversityResponse struct {
	UniversityID string    `json:"universityId"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toResponse(u University) UniversityResponse {
	return UniversityResponse{
		UniversityID: u.ID,
		Name:         u.Name,
		Code:         u.Code,
		CreatedAt:    u.CreatedAt,
	}
}

// StepResponse is one wizard step with its display label.
type StepResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ConfigResponse is the outward-facing registration configuration.
type ConfigResponse struct {
	UniversityID        string             `json:"universityId"`
	Steps               []StepResponse     `json:"steps"`
	RequiredDocuments   []RequiredDocument `json:"requiredDocuments"`
	FeeAmount           int64              `json:"feeAmount"`
	TestDurationSeconds int                `json:"testDurationSeconds"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func toConfigResponse(cfg RegistrationConfig) ConfigResponse {
	steps := make([]StepResponse, 0, len(cfg.Steps))
	for _, key := range cfg.Steps {
		steps = append(steps, StepResponse{Key: key, Label: StepLabels[key]})
	}
	docs := cfg.RequiredDocuments
	if docs == nil {
		docs = []RequiredDocument{}
	}
	return ConfigResponse{
		UniversityID:        cfg.UniversityID,
		Steps:               steps,
		RequiredDocuments:   docs,
		FeeAmount:           cfg.FeeAmount,
		TestDurationSeconds: cfg.TestDurationSeconds,
		UpdatedAt:           cfg.UpdatedAt,
	}
}
