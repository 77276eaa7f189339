package applications

import "time"

// StartRequest begins (or resumes) an application at a university.
type StartRequest struct {
	UniversityID string `json:"universityId" binding:"required,uuid"`
}

// NavigateRequest jumps the wizard to a step.
type NavigateRequest struct {
	StepKey string `json:"stepKey" binding:"required,stepkey"`
}

// BasicInfoRequest carries the basic-info step payload.
type BasicInfoRequest struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"required"`
	DateOfBirth string `json:"dateOfBirth"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
}

// EducationalDetailsRequest carries the schooling step payload.
type EducationalDetailsRequest struct {
	HighestQualification string  `json:"highestQualification" binding:"required"`
	Institution          string  `json:"institution" binding:"required"`
	Board                string  `json:"board"`
	YearOfPassing        int     `json:"yearOfPassing" binding:"omitempty,min=1950,max=2100"`
	GradePercent         float64 `json:"gradePercent" binding:"omitempty,min=0,max=100"`
}

// StepState describes one wizard step in the progress view.
type StepState struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

// ApplicationResponse is the full wizard view returned by every mutation.
type ApplicationResponse struct {
	ID                 string              `json:"id"`
	UniversityID       string              `json:"universityId"`
	Status             string              `json:"status"`
	CurrentStepKey     string              `json:"currentStepKey"`
	ProgressPercent    float64             `json:"progressPercent"`
	Steps              []StepState         `json:"steps"`
	BasicInfo          *BasicInfo          `json:"basicInfo,omitempty"`
	EducationalDetails *EducationalDetails `json:"educationalDetails,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
	SubmittedAt        *time.Time          `json:"submittedAt,omitempty"`
}

func toResponse(app Application, seq *Sequencer) ApplicationResponse {
	steps := make([]StepState, 0, len(seq.Steps()))
	for _, key := range seq.Steps() {
		steps = append(steps, StepState{
			Key:       key,
			Label:     Label(key),
			Completed: seq.IsCompleted(key),
			Current:   key == seq.CurrentStep(),
		})
	}
	return ApplicationResponse{
		ID:                 app.ID,
		UniversityID:       app.UniversityID,
		Status:             app.Status,
		CurrentStepKey:     app.CurrentStepKey,
		ProgressPercent:    seq.ProgressPercent(),
		Steps:              steps,
		BasicInfo:          app.BasicInfo,
		EducationalDetails: app.EducationalDetails,
		CreatedAt:          app.CreatedAt,
		UpdatedAt:          app.UpdatedAt,
		SubmittedAt:        app.SubmittedAt,
	}
}
