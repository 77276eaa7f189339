package leads

import "time"

// Pipeline stages. converted and lost are terminal.
const (
	StageNew       = "new"
	StageContacted = "contacted"
	StageQualified = "qualified"
	StageConverted = "converted"
	StageLost      = "lost"
)

// stageTransitions lists the allowed forward moves. A lead can drop to lost
// from any non-terminal stage.
var stageTransitions = map[string][]string{
	StageNew:       {StageContacted, StageLost},
	StageContacted: {StageQualified, StageLost},
	StageQualified: {StageConverted, StageLost},
}

// CanTransition reports whether from → to is a legal stage move.
func CanTransition(from, to string) bool {
	for _, allowed := range stageTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Note is one counsellor remark on a lead.
type Note struct {
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lead is one prospective student in a university's counselling pipeline.
type Lead struct {
	ID           string
	UniversityID string
	Name         string
	Email        string
	Phone        string
	Source       string
	Stage        string
	AssignedTo   string
	Notes        []Note
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
