package documents

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"admissions-backend/internal/applications"
	"admissions-backend/internal/shared/storage/object/local"
	"admissions-backend/internal/universities"
)

func setupService(t *testing.T) (*Service, string) {
	t.Helper()
	uniRepo := universities.NewMemoryRepo()

	uni := universities.University{ID: "uni-1", Name: "Test University", Code: "TU"}
	if err := uniRepo.Create(context.Background(), uni); err != nil {
		t.Fatalf("create university: %v", err)
	}
	cfg := universities.RegistrationConfig{
		UniversityID: uni.ID,
		Steps: []string{
			universities.StepBasicInfo,
			universities.StepDocuments,
			universities.StepFinalSubmission,
		},
		RequiredDocuments: []universities.RequiredDocument{
			{Name: "id_proof", IsMandatory: true, AllowedTypes: []string{"jpg", "pdf"}, MaxSizeBytes: 1 << 20},
			{Name: "photo", IsMandatory: false, AllowedTypes: []string{"jpg", "png"}},
		},
	}
	if err := uniRepo.SaveConfig(context.Background(), cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	apps := &applications.Service{
		Repo:    applications.NewMemoryRepo(),
		UniRepo: uniRepo,
	}
	app, _, err := apps.Start(context.Background(), uni.ID, "student-1")
	if err != nil {
		t.Fatalf("start application: %v", err)
	}

	svc := &Service{
		Repo:    NewMemoryRepo(),
		Store:   local.New(t.TempDir()),
		Apps:    apps,
		UniRepo: uniRepo,
	}
	return svc, app.ID
}

func jpgContent() string {
	return base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02, 0x03})
}

func TestUploadHappyPathMarksStep(t *testing.T) {
	svc, appID := setupService(t)

	doc, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "aadhaar.jpg", jpgContent())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", doc.Status)
	}

	// The only mandatory document is live, so the step completes.
	app, err := svc.Apps.GetAny(context.Background(), appID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	completed := false
	for _, key := range app.CompletedSteps {
		if key == universities.StepDocuments {
			completed = true
		}
	}
	if !completed {
		t.Fatalf("expected documents step completed, got %v", app.CompletedSteps)
	}
}

func TestUploadUnknownDocumentName(t *testing.T) {
	svc, appID := setupService(t)

	_, err := svc.Upload(context.Background(), appID, "student-1", "passport", "p.jpg", jpgContent())
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUploadDisallowedExtension(t *testing.T) {
	svc, appID := setupService(t)

	_, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "script.exe", jpgContent())
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUploadBadBase64(t *testing.T) {
	svc, appID := setupService(t)

	_, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "a.jpg", "!!not-base64!!")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUploadOversizedFile(t *testing.T) {
	svc, appID := setupService(t)

	big := make([]byte, (1<<20)+1)
	_, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "big.jpg",
		base64.StdEncoding.EncodeToString(big))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for per-document limit, got %v", err)
	}
}

func TestUploadCorruptPDFRejected(t *testing.T) {
	svc, appID := setupService(t)

	_, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "doc.pdf",
		base64.StdEncoding.EncodeToString([]byte("not a pdf at all")))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for corrupt pdf, got %v", err)
	}
}

func TestSecondUploadBlockedUntilRejected(t *testing.T) {
	svc, appID := setupService(t)

	first, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "one.jpg", jpgContent())
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}

	if _, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "two.jpg", jpgContent()); !errors.Is(err, ErrAlreadyLive) {
		t.Fatalf("expected ErrAlreadyLive, got %v", err)
	}

	if _, err := svc.Review(context.Background(), first.ID, StatusRejected, "unreadable scan"); err != nil {
		t.Fatalf("review: %v", err)
	}

	// A rejected record is replaced in one operation.
	replaced, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "two.jpg", jpgContent())
	if err != nil {
		t.Fatalf("replace upload: %v", err)
	}
	if replaced.ID == first.ID {
		t.Fatalf("replacement must be a fresh record")
	}

	live, err := svc.Repo.GetLive(context.Background(), appID, "id_proof")
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	if live.ID != replaced.ID || live.Status != StatusPending {
		t.Fatalf("expected the replacement to be the live pending record, got %+v", live)
	}
}

func TestRejectionRegressesStep(t *testing.T) {
	svc, appID := setupService(t)

	doc, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "one.jpg", jpgContent())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := svc.Review(context.Background(), doc.ID, StatusRejected, "blurred"); err != nil {
		t.Fatalf("review: %v", err)
	}

	app, err := svc.Apps.GetAny(context.Background(), appID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	for _, key := range app.CompletedSteps {
		if key == universities.StepDocuments {
			t.Fatalf("documents step must regress after rejection, got %v", app.CompletedSteps)
		}
	}
}

func TestDeleteVerifiedLocked(t *testing.T) {
	svc, appID := setupService(t)

	doc, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "one.jpg", jpgContent())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := svc.Review(context.Background(), doc.ID, StatusVerified, ""); err != nil {
		t.Fatalf("review: %v", err)
	}

	if err := svc.Delete(context.Background(), appID, "student-1", "id_proof"); !errors.Is(err, ErrVerifiedLocked) {
		t.Fatalf("expected ErrVerifiedLocked, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, appID := setupService(t)

	if _, err := svc.Upload(context.Background(), appID, "student-1", "id_proof", "one.jpg", jpgContent()); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(context.Background(), appID, "student-1", "id_proof"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Deleting again is a no-op and the document is plainly missing.
	if err := svc.Delete(context.Background(), appID, "student-1", "id_proof"); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	entries, err := svc.Checklist(context.Background(), appID, "student-1")
	if err != nil {
		t.Fatalf("checklist: %v", err)
	}
	for _, entry := range entries {
		if entry.Name == "id_proof" && entry.Status != StatusMissing {
			t.Fatalf("expected id_proof missing after delete, got %s", entry.Status)
		}
	}
}
