package universities

import "time"

// University is a tenant: one institution running its own admissions workflow.
type University struct {
	ID        string
	Name      string
	Code      string
	CreatedAt time.Time
}

// Wizard step keys in master order.
const (
	StepBasicInfo          = "basic_info"
	StepEducationalDetails = "educational_details"
	StepDocuments          = "documents"
	StepEntranceTest       = "entrance_test"
	StepPayment            = "payment"
	StepFinalSubmission    = "final_submission"
)

// MasterSteps is the fixed ordered list every configuration must be a
// subsequence of. basic_info and final_submission cannot be disabled.
var MasterSteps = []string{
	StepBasicInfo,
	StepEducationalDetails,
	StepDocuments,
	StepEntranceTest,
	StepPayment,
	StepFinalSubmission,
}

// StepLabels maps step keys to display names.
var StepLabels = map[string]string{
	StepBasicInfo:          "Basic Information",
	StepEducationalDetails: "Educational Details",
	StepDocuments:          "Documents",
	StepEntranceTest:       "Entrance Test",
	StepPayment:            "Application Fee",
	StepFinalSubmission:    "Final Submission",
}

// RequiredDocument describes one entry of the configured document checklist.
type RequiredDocument struct {
	Name         string   `json:"name"`
	IsMandatory  bool     `json:"isMandatory"`
	AllowedTypes []string `json:"allowedTypes"`
	MaxSizeBytes int64    `json:"maxSizeBytes"`
}

// Question types for the entrance test.
const (
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
)

// Question is one entrance-test question as configured by the university.
// Correct answers are held by the external evaluator, never here.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

// RegistrationConfig is a university's admissions workflow configuration.
type RegistrationConfig struct {
	UniversityID        string
	Steps               []string
	RequiredDocuments   []RequiredDocument
	FeeAmount           int64
	TestDurationSeconds int
	TestQuestions       []Question
	UpdatedAt           time.Time
}

// HasStep reports whether the given step key is enabled.
func (c RegistrationConfig) HasStep(key string) bool {
	for _, s := range c.Steps {
		if s == key {
			return true
		}
	}
	return false
}

// RequiredDocumentByName returns the checklist entry with the given name.
func (c RegistrationConfig) RequiredDocumentByName(name string) (RequiredDocument, bool) {
	for _, d := range c.RequiredDocuments {
		if d.Name == name {
			return d, true
		}
	}
	return RequiredDocument{}, false
}
