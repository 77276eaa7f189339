package documents

import "admissions-backend/internal/universities"

// ChecklistEntry is the tracked state of one required document.
type ChecklistEntry struct {
	Name      string
	Mandatory bool
	Status    string
	Document  *UploadedDocument
}

// Checklist tracks an application's uploads against the university's
// required-document list. Only live records participate.
type Checklist struct {
	required []universities.RequiredDocument
	live     map[string]UploadedDocument
}

// NewChecklist indexes the live uploads by document name.
func NewChecklist(required []universities.RequiredDocument, live []UploadedDocument) *Checklist {
	byName := make(map[string]UploadedDocument, len(live))
	for _, doc := range live {
		byName[doc.DocumentName] = doc
	}
	return &Checklist{required: required, live: byName}
}

// Status returns missing, pending, verified or rejected for a document name.
func (c *Checklist) Status(name string) string {
	doc, ok := c.live[name]
	if !ok {
		return StatusMissing
	}
	return doc.Status
}

// CanUpload reports whether a new upload for the document is accepted.
// It is false only while a non-rejected live record exists.
func (c *Checklist) CanUpload(name string) bool {
	doc, ok := c.live[name]
	if !ok {
		return true
	}
	return doc.Status == StatusRejected
}

// IsStepComplete reports whether every mandatory document has a live upload
// that has not been rejected. Optional documents never block completion.
func (c *Checklist) IsStepComplete() bool {
	for _, req := range c.required {
		if !req.IsMandatory {
			continue
		}
		switch c.Status(req.Name) {
		case StatusPending, StatusVerified:
		default:
			return false
		}
	}
	return true
}

// Entries returns the checklist in configured order.
func (c *Checklist) Entries() []ChecklistEntry {
	out := make([]ChecklistEntry, 0, len(c.required))
	for _, req := range c.required {
		entry := ChecklistEntry{
			Name:      req.Name,
			Mandatory: req.IsMandatory,
			Status:    c.Status(req.Name),
		}
		if doc, ok := c.live[req.Name]; ok {
			copied := doc
			entry.Document = &copied
		}
		out = append(out, entry)
	}
	return out
}
