package documents

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for development and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]UploadedDocument
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]UploadedDocument)}
}

func (r *MemoryRepo) Create(ctx context.Context, doc UploadedDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.docs {
		if existing.SupersededAt == nil &&
			existing.ApplicationID == doc.ApplicationID &&
			existing.DocumentName == doc.DocumentName {
			return ErrAlreadyLive
		}
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (UploadedDocument, error) {
	if err := ctx.Err(); err != nil {
		return UploadedDocument{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[documentID]
	if !ok {
		return UploadedDocument{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) GetLive(ctx context.Context, applicationID, documentName string) (UploadedDocument, error) {
	if err := ctx.Err(); err != nil {
		return UploadedDocument{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, doc := range r.docs {
		if doc.SupersededAt == nil && doc.ApplicationID == applicationID && doc.DocumentName == documentName {
			return doc, nil
		}
	}
	return UploadedDocument{}, ErrNotFound
}

func (r *MemoryRepo) ListLive(ctx context.Context, applicationID string) ([]UploadedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []UploadedDocument{}
	for _, doc := range r.docs {
		if doc.SupersededAt == nil && doc.ApplicationID == applicationID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Replace(ctx context.Context, oldID string, doc UploadedDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.docs[oldID]
	if !ok {
		return ErrNotFound
	}
	if old.SupersededAt == nil {
		now := time.Now().UTC()
		old.SupersededAt = &now
		r.docs[oldID] = old
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) Supersede(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.SupersededAt == nil {
		now := time.Now().UTC()
		doc.SupersededAt = &now
		r.docs[documentID] = doc
	}
	return nil
}

func (r *MemoryRepo) UpdateReview(ctx context.Context, documentID, status, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	doc.Status = status
	doc.RejectReason = reason
	doc.ReviewedAt = &now
	r.docs[documentID] = doc
	return nil
}
