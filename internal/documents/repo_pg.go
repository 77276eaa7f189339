package documents

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres. The partial unique index on
// (application_id, document_name) WHERE superseded_at IS NULL backs the
// one-live-record rule.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `
id, application_id, document_name, file_name, mime_type, size_bytes,
storage_key, status, reject_reason, uploaded_at, reviewed_at, superseded_at`

// Create inserts a new live record.
func (r *PGRepo) Create(ctx context.Context, doc UploadedDocument) error {
	const query = `
INSERT INTO uploaded_documents (
    id, application_id, document_name, file_name, mime_type, size_bytes,
    storage_key, status, reject_reason, uploaded_at, reviewed_at, superseded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.DB.ExecContext(ctx, query,
		doc.ID, doc.ApplicationID, doc.DocumentName, doc.FileName, doc.MimeType,
		doc.SizeBytes, doc.StorageKey, doc.Status, doc.RejectReason,
		doc.UploadedAt, doc.ReviewedAt, doc.SupersededAt)
	if isUniqueViolation(err) {
		return ErrAlreadyLive
	}
	return err
}

// GetByID returns a record regardless of live state.
func (r *PGRepo) GetByID(ctx context.Context, documentID string) (UploadedDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM uploaded_documents WHERE id = $1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, documentID))
}

// GetLive returns the live record for a document name.
func (r *PGRepo) GetLive(ctx context.Context, applicationID, documentName string) (UploadedDocument, error) {
	query := `SELECT ` + documentColumns + `
FROM uploaded_documents
WHERE application_id = $1 AND document_name = $2 AND superseded_at IS NULL`
	return scanDocument(r.DB.QueryRowContext(ctx, query, applicationID, documentName))
}

// ListLive returns all live records for an application.
func (r *PGRepo) ListLive(ctx context.Context, applicationID string) ([]UploadedDocument, error) {
	query := `SELECT ` + documentColumns + `
FROM uploaded_documents
WHERE application_id = $1 AND superseded_at IS NULL
ORDER BY uploaded_at`
	rows, err := r.DB.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []UploadedDocument{}
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Replace supersedes oldID and inserts doc inside one transaction, so the
// document name never has two live records or zero history.
func (r *PGRepo) Replace(ctx context.Context, oldID string, doc UploadedDocument) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE uploaded_documents SET superseded_at = $2 WHERE id = $1 AND superseded_at IS NULL`,
		oldID, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Old record may already be superseded; it must at least exist.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM uploaded_documents WHERE id = $1)`, oldID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO uploaded_documents (
    id, application_id, document_name, file_name, mime_type, size_bytes,
    storage_key, status, reject_reason, uploaded_at, reviewed_at, superseded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		doc.ID, doc.ApplicationID, doc.DocumentName, doc.FileName, doc.MimeType,
		doc.SizeBytes, doc.StorageKey, doc.Status, doc.RejectReason,
		doc.UploadedAt, doc.ReviewedAt, doc.SupersededAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyLive
		}
		return err
	}

	return tx.Commit()
}

// Supersede retires a live record; superseding twice is a no-op.
func (r *PGRepo) Supersede(ctx context.Context, documentID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE uploaded_documents SET superseded_at = $2 WHERE id = $1 AND superseded_at IS NULL`,
		documentID, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := r.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM uploaded_documents WHERE id = $1)`, documentID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// UpdateReview records a reviewer decision.
func (r *PGRepo) UpdateReview(ctx context.Context, documentID, status, reason string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE uploaded_documents SET status = $2, reject_reason = $3, reviewed_at = $4 WHERE id = $1`,
		documentID, status, reason, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation matches SQLSTATE 23505 as surfaced by pgx through
// database/sql.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}

func scanDocument(row *sql.Row) (UploadedDocument, error) {
	doc, err := scanDocumentRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UploadedDocument{}, ErrNotFound
		}
		return UploadedDocument{}, err
	}
	return doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocumentRows(row rowScanner) (UploadedDocument, error) {
	var doc UploadedDocument
	var reviewedAt, supersededAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.ApplicationID, &doc.DocumentName, &doc.FileName, &doc.MimeType,
		&doc.SizeBytes, &doc.StorageKey, &doc.Status, &doc.RejectReason,
		&doc.UploadedAt, &reviewedAt, &supersededAt)
	if err != nil {
		return UploadedDocument{}, err
	}
	if reviewedAt.Valid {
		doc.ReviewedAt = &reviewedAt.Time
	}
	if supersededAt.Valid {
		doc.SupersededAt = &supersededAt.Time
	}
	return doc, nil
}
