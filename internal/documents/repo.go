package documents

import "context"

// Repo persists uploaded documents. A record is live while superseded_at is
// unset; storage backends enforce at most one live record per
// (application, document name).
type Repo interface {
	Create(ctx context.Context, doc UploadedDocument) error
	GetByID(ctx context.Context, documentID string) (UploadedDocument, error)
	GetLive(ctx context.Context, applicationID, documentName string) (UploadedDocument, error)
	ListLive(ctx context.Context, applicationID string) ([]UploadedDocument, error)
	// Replace supersedes oldID and inserts doc in one atomic step.
	Replace(ctx context.Context, oldID string, doc UploadedDocument) error
	// Supersede retires a live record. Already-superseded records are a no-op.
	Supersede(ctx context.Context, documentID string) error
	UpdateReview(ctx context.Context, documentID, status, reason string) error
}
