package applications

import "time"

// Application statuses.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

// BasicInfo is the first wizard step's payload.
type BasicInfo struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
}

// EducationalDetails is the schooling-history step's payload.
type EducationalDetails struct {
	HighestQualification string  `json:"highestQualification"`
	Institution          string  `json:"institution"`
	Board                string  `json:"board"`
	YearOfPassing        int     `json:"yearOfPassing"`
	GradePercent         float64 `json:"gradePercent"`
}

// Application is one student's admission application at one university.
type Application struct {
	ID                 string
	UniversityID       string
	StudentID          string
	Status             string
	CurrentStepKey     string
	CompletedSteps     []string
	BasicInfo          *BasicInfo
	EducationalDetails *EducationalDetails
	CreatedAt          time.Time
	UpdatedAt          time.Time
	SubmittedAt        *time.Time
}
