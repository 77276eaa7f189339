package documents

import "time"

// UploadRequest carries a base64-encoded file inside the JSON body.
type UploadRequest struct {
	DocumentName string `json:"documentName" binding:"required"`
	FileName     string `json:"fileName" binding:"required"`
	Content      string `json:"content" binding:"required"`
}

// ReviewRequest records a staff decision on an upload.
type ReviewRequest struct {
	Status string `json:"status" binding:"required,oneof=verified rejected"`
	Reason string `json:"reason"`
}

// DocumentResponse is the API view of one upload.
type DocumentResponse struct {
	ID           string     `json:"id"`
	DocumentName string     `json:"documentName"`
	FileName     string     `json:"fileName"`
	MimeType     string     `json:"mimeType"`
	SizeBytes    int64      `json:"sizeBytes"`
	Status       string     `json:"status"`
	RejectReason string     `json:"rejectReason,omitempty"`
	UploadedAt   time.Time  `json:"uploadedAt"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
}

// ChecklistEntryResponse is one row of the checklist view.
type ChecklistEntryResponse struct {
	Name      string            `json:"name"`
	Mandatory bool              `json:"mandatory"`
	Status    string            `json:"status"`
	Document  *DocumentResponse `json:"document,omitempty"`
}

func toDocumentResponse(doc UploadedDocument) DocumentResponse {
	return DocumentResponse{
		ID:           doc.ID,
		DocumentName: doc.DocumentName,
		FileName:     doc.FileName,
		MimeType:     doc.MimeType,
		SizeBytes:    doc.SizeBytes,
		Status:       doc.Status,
		RejectReason: doc.RejectReason,
		UploadedAt:   doc.UploadedAt,
		ReviewedAt:   doc.ReviewedAt,
	}
}

func toChecklistResponse(entries []ChecklistEntry) []ChecklistEntryResponse {
	out := make([]ChecklistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp := ChecklistEntryResponse{
			Name:      entry.Name,
			Mandatory: entry.Mandatory,
			Status:    entry.Status,
		}
		if entry.Document != nil {
			doc := toDocumentResponse(*entry.Document)
			resp.Document = &doc
		}
		out = append(out, resp)
	}
	return out
}
