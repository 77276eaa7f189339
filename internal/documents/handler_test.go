package documents_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"admissions-backend/internal/bootstrap"
	"admissions-backend/internal/shared/auth"
	"admissions-backend/internal/shared/config"
	"admissions-backend/internal/universities"
)

func buildDocsApp(t *testing.T) (*bootstrap.App, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}

	uni, err := app.UniversitiesService.Create(context.Background(), "Test University", "TU")
	if err != nil {
		t.Fatalf("create university: %v", err)
	}
	_, err = app.UniversitiesService.SaveConfig(context.Background(), universities.RegistrationConfig{
		UniversityID: uni.ID,
		Steps: []string{
			universities.StepBasicInfo,
			universities.StepDocuments,
			universities.StepFinalSubmission,
		},
		RequiredDocuments: []universities.RequiredDocument{
			{Name: "marksheet", IsMandatory: true, AllowedTypes: []string{"jpg"}, MaxSizeBytes: 1 << 20},
		},
	})
	if err != nil {
		t.Fatalf("save config: %v", err)
	}
	return app, uni.ID
}

func studentRequest(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Student-Id", "student-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func staffRequest(t *testing.T, router *gin.Engine, role, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.SignToken(auth.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "staff-1"},
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	body := &bytes.Buffer{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestReviewRejectionReopensSlot(t *testing.T) {
	app, uniID := buildDocsApp(t)
	router := app.Router

	resp := studentRequest(t, router, http.MethodPost, "/api/v1/applications", gin.H{"universityId": uniID})
	var created struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)

	content := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10})
	resp = studentRequest(t, router, http.MethodPost, "/api/v1/applications/"+created.ID+"/documents", gin.H{
		"documentName": "marksheet",
		"fileName":     "marksheet.jpg",
		"content":      content,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var uploaded struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&uploaded)
	if uploaded.Status != "pending" {
		t.Fatalf("expected pending, got %q", uploaded.Status)
	}

	// Students cannot review.
	resp = studentRequest(t, router, http.MethodPost, "/api/v1/documents/"+uploaded.ID+"/review", gin.H{
		"status": "verified",
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student review, got %d", resp.Code)
	}

	// Staff rejection reopens the slot and reverts the step.
	resp = staffRequest(t, router, "counsellor", http.MethodPost, "/api/v1/documents/"+uploaded.ID+"/review", gin.H{
		"status": "rejected",
		"reason": "unreadable scan",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("review: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = studentRequest(t, router, http.MethodGet, "/api/v1/applications/"+created.ID+"/documents", nil)
	var checklist struct {
		Documents []struct {
			Name     string `json:"name"`
			Status   string `json:"status"`
			Document *struct {
				RejectReason string `json:"rejectReason"`
			} `json:"document"`
		} `json:"documents"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&checklist)
	if len(checklist.Documents) != 1 || checklist.Documents[0].Status != "rejected" {
		t.Fatalf("unexpected checklist: %+v", checklist.Documents)
	}
	if checklist.Documents[0].Document == nil || checklist.Documents[0].Document.RejectReason != "unreadable scan" {
		t.Fatalf("expected reject reason on checklist entry")
	}

	// A fresh upload replaces the rejected record.
	resp = studentRequest(t, router, http.MethodPost, "/api/v1/applications/"+created.ID+"/documents", gin.H{
		"documentName": "marksheet",
		"fileName":     "marksheet-v2.jpg",
		"content":      content,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("reupload: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var replaced struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&replaced)
	if replaced.ID == uploaded.ID || replaced.Status != "pending" {
		t.Fatalf("expected a fresh pending record, got %+v", replaced)
	}
}
