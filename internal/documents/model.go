package documents

import "time"

// Document statuses. "missing" is a checklist state, never stored.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
	StatusMissing  = "missing"
)

// UploadedDocument is one upload against a required document name. At most
// one record per (application, document name) is live; replaced or deleted
// records keep their row with superseded_at set.
type UploadedDocument struct {
	ID            string
	ApplicationID string
	DocumentName  string
	FileName      string
	MimeType      string
	SizeBytes     int64
	StorageKey    string
	Status        string
	RejectReason  string
	UploadedAt    time.Time
	ReviewedAt    *time.Time
	SupersededAt  *time.Time
}
