package documents

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"admissions-backend/internal/applications"
	"admissions-backend/internal/shared/storage/object"
	"admissions-backend/internal/shared/telemetry"
	"admissions-backend/internal/shared/util"
	"admissions-backend/internal/universities"
)

// maxUploadBytes is the hard ceiling regardless of per-document limits.
const maxUploadBytes = 5 << 20

// Service contains business logic for the document checklist.
type Service struct {
	Repo    Repo
	Store   object.ObjectStore
	Apps    *applications.Service
	UniRepo universities.Repo
}

// Checklist returns the tracked state of every required document.
func (s *Service) Checklist(ctx context.Context, applicationID, studentID string) ([]ChecklistEntry, error) {
	app, err := s.Apps.Get(ctx, applicationID, studentID)
	if err != nil {
		return nil, err
	}
	checklist, _, err := s.buildChecklist(ctx, app)
	if err != nil {
		return nil, err
	}
	return checklist.Entries(), nil
}

// Upload validates and stores a file against a required document name. When a
// rejected live record exists it is superseded in the same operation, so
// upload doubles as replace. All validation happens before any storage write.
func (s *Service) Upload(ctx context.Context, applicationID, studentID, documentName, fileName string, contentB64 string) (UploadedDocument, error) {
	app, err := s.Apps.Get(ctx, applicationID, studentID)
	if err != nil {
		return UploadedDocument{}, err
	}
	if app.Status == applications.StatusSubmitted {
		return UploadedDocument{}, applications.ErrAlreadySubmitted
	}

	cfg, err := s.UniRepo.GetConfig(ctx, app.UniversityID)
	if err != nil {
		return UploadedDocument{}, err
	}
	req, ok := cfg.RequiredDocumentByName(documentName)
	if !ok {
		return UploadedDocument{}, fmt.Errorf("%w: unknown document %q", ErrInvalidInput, documentName)
	}

	data, err := validatePayload(req, fileName, contentB64)
	if err != nil {
		return UploadedDocument{}, err
	}
	cleanName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return UploadedDocument{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// The upload slot must be free (or hold a rejected record) before any
	// storage effect.
	var supersedeID string
	existing, err := s.Repo.GetLive(ctx, applicationID, documentName)
	switch {
	case err == nil:
		if existing.Status != StatusRejected {
			return UploadedDocument{}, ErrAlreadyLive
		}
		supersedeID = existing.ID
	case !errors.Is(err, ErrNotFound):
		return UploadedDocument{}, err
	}

	key, size, mime, err := s.Store.Save(ctx, applicationID, cleanName, bytes.NewReader(data))
	if err != nil {
		return UploadedDocument{}, err
	}

	doc := UploadedDocument{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		DocumentName:  documentName,
		FileName:      cleanName,
		MimeType:      mime,
		SizeBytes:     size,
		StorageKey:    key,
		Status:        StatusPending,
		UploadedAt:    time.Now().UTC(),
	}

	if supersedeID != "" {
		err = s.Repo.Replace(ctx, supersedeID, doc)
	} else {
		err = s.Repo.Create(ctx, doc)
	}
	if err != nil {
		// Roll back the stored object so a failed insert leaves no orphan.
		_ = s.Store.Delete(ctx, key)
		return UploadedDocument{}, err
	}

	telemetry.Info("document.uploaded", map[string]any{
		"application_id": applicationID,
		"document_name":  documentName,
		"size_bytes":     size,
		"replaced":       supersedeID != "",
	})

	if supersedeID != "" && existing.StorageKey != "" {
		_ = s.Store.Delete(ctx, existing.StorageKey)
	}

	if err := s.syncStepCompletion(ctx, app); err != nil {
		return UploadedDocument{}, err
	}
	return doc, nil
}

// Delete retires a live upload. Verified documents are locked; deleting an
// already-missing document is a no-op.
func (s *Service) Delete(ctx context.Context, applicationID, studentID, documentName string) error {
	app, err := s.Apps.Get(ctx, applicationID, studentID)
	if err != nil {
		return err
	}
	if app.Status == applications.StatusSubmitted {
		return applications.ErrAlreadySubmitted
	}

	doc, err := s.Repo.GetLive(ctx, applicationID, documentName)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if doc.Status == StatusVerified {
		return ErrVerifiedLocked
	}

	if err := s.Repo.Supersede(ctx, doc.ID); err != nil {
		return err
	}
	_ = s.Store.Delete(ctx, doc.StorageKey)

	telemetry.Info("document.deleted", map[string]any{
		"application_id": applicationID,
		"document_name":  documentName,
	})
	return s.syncStepCompletion(ctx, app)
}

// Open streams a stored document for download. The caller closes the reader.
func (s *Service) Open(ctx context.Context, applicationID, studentID, documentName string) (UploadedDocument, io.ReadCloser, error) {
	app, err := s.Apps.Get(ctx, applicationID, studentID)
	if err != nil {
		return UploadedDocument{}, nil, err
	}
	doc, err := s.Repo.GetLive(ctx, app.ID, documentName)
	if err != nil {
		return UploadedDocument{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return UploadedDocument{}, nil, err
	}
	return doc, rc, nil
}

// Review records a staff decision on an upload and keeps the wizard's
// documents step in sync: a rejection of a mandatory document regresses the
// step.
func (s *Service) Review(ctx context.Context, documentID, status, reason string) (UploadedDocument, error) {
	if status != StatusVerified && status != StatusRejected {
		return UploadedDocument{}, fmt.Errorf("%w: status must be verified or rejected", ErrInvalidInput)
	}
	if status == StatusRejected && reason == "" {
		return UploadedDocument{}, fmt.Errorf("%w: a rejection needs a reason", ErrInvalidInput)
	}

	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return UploadedDocument{}, err
	}
	if err := s.Repo.UpdateReview(ctx, documentID, status, reason); err != nil {
		return UploadedDocument{}, err
	}

	telemetry.Info("document.reviewed", map[string]any{
		"document_id":   documentID,
		"document_name": doc.DocumentName,
		"status":        status,
	})

	app, err := s.Apps.GetAny(ctx, doc.ApplicationID)
	if err != nil {
		return UploadedDocument{}, err
	}
	if err := s.syncStepCompletion(ctx, app); err != nil {
		return UploadedDocument{}, err
	}
	return s.Repo.GetByID(ctx, documentID)
}

func (s *Service) buildChecklist(ctx context.Context, app applications.Application) (*Checklist, universities.RegistrationConfig, error) {
	cfg, err := s.UniRepo.GetConfig(ctx, app.UniversityID)
	if err != nil {
		return nil, universities.RegistrationConfig{}, err
	}
	live, err := s.Repo.ListLive(ctx, app.ID)
	if err != nil {
		return nil, universities.RegistrationConfig{}, err
	}
	return NewChecklist(cfg.RequiredDocuments, live), cfg, nil
}

func (s *Service) syncStepCompletion(ctx context.Context, app applications.Application) error {
	checklist, cfg, err := s.buildChecklist(ctx, app)
	if err != nil {
		return err
	}
	if !cfg.HasStep(universities.StepDocuments) {
		return nil
	}
	if checklist.IsStepComplete() {
		return s.Apps.MarkStepCompleted(ctx, app.ID, universities.StepDocuments)
	}
	return s.Apps.MarkStepIncomplete(ctx, app.ID, universities.StepDocuments)
}

// validatePayload decodes and checks the upload before anything is stored.
func validatePayload(req universities.RequiredDocument, fileName, contentB64 string) ([]byte, error) {
	if fileName == "" {
		return nil, fmt.Errorf("%w: fileName is required", ErrInvalidInput)
	}
	ext := util.FileExtension(fileName)
	if !extensionAllowed(req, ext) {
		return nil, fmt.Errorf("%w: file type %q is not accepted for %s", ErrInvalidInput, ext, req.Name)
	}

	data, err := base64.StdEncoding.DecodeString(contentB64)
	if err != nil {
		return nil, fmt.Errorf("%w: content must be base64-encoded", ErrInvalidInput)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds the %d byte limit", ErrInvalidInput, maxUploadBytes)
	}
	if req.MaxSizeBytes > 0 && int64(len(data)) > req.MaxSizeBytes {
		return nil, fmt.Errorf("%w: file exceeds the %d byte limit for %s", ErrInvalidInput, req.MaxSizeBytes, req.Name)
	}
	if ext == "pdf" {
		if _, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
			return nil, fmt.Errorf("%w: file is not a readable PDF", ErrInvalidInput)
		}
	}
	return data, nil
}

func extensionAllowed(req universities.RequiredDocument, ext string) bool {
	if len(req.AllowedTypes) == 0 {
		return ext == "pdf" || ext == "jpg" || ext == "jpeg" || ext == "png"
	}
	for _, allowed := range req.AllowedTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}
