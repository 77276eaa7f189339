package exams_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"admissions-backend/internal/bootstrap"
	"admissions-backend/internal/evaluator"
	"admissions-backend/internal/shared/config"
	"admissions-backend/internal/universities"
)

type stubEvaluator struct {
	result evaluator.Result
}

func (s *stubEvaluator) Evaluate(ctx context.Context, attemptID string, responses map[string][]int) (evaluator.Result, error) {
	return s.result, nil
}

func buildExamApp(t *testing.T) (*bootstrap.App, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	app.ExamsService.Eval = &stubEvaluator{result: evaluator.Result{
		MarksObtained: 1, TotalMarks: 2, Percentage: 50, Correct: 1, Incorrect: 1, Passed: true,
	}}

	uni, err := app.UniversitiesService.Create(context.Background(), "Test University", "TU")
	if err != nil {
		t.Fatalf("create university: %v", err)
	}
	_, err = app.UniversitiesService.SaveConfig(context.Background(), universities.RegistrationConfig{
		UniversityID: uni.ID,
		Steps: []string{
			universities.StepBasicInfo,
			universities.StepEntranceTest,
			universities.StepFinalSubmission,
		},
		TestDurationSeconds: 600,
		TestQuestions: []universities.Question{
			{ID: "q1", Text: "2+2?", Type: universities.QuestionSingleChoice, Options: []string{"3", "4"}},
			{ID: "q2", Text: "Primes?", Type: universities.QuestionMultipleChoice, Options: []string{"2", "3", "4"}},
		},
	})
	if err != nil {
		t.Fatalf("save config: %v", err)
	}
	return app, uni.ID
}

func examJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
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

func TestExamFlow(t *testing.T) {
	app, uniID := buildExamApp(t)
	router := app.Router

	resp := examJSON(t, router, http.MethodPost, "/api/v1/applications", gin.H{"universityId": uniID})
	if resp.Code != http.StatusCreated {
		t.Fatalf("start application: expected 201, got %d", resp.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)

	// Before starting, the exam endpoint reports not_started.
	resp = examJSON(t, router, http.MethodGet, "/api/v1/applications/"+created.ID+"/exam", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var before struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&before)
	if before.Status != "not_started" {
		t.Fatalf("expected not_started, got %q", before.Status)
	}

	// Starting the attempt reveals the questions without answers.
	resp = examJSON(t, router, http.MethodPost, "/api/v1/applications/"+created.ID+"/exam", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("start exam: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var attempt struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		RemainingSeconds int    `json:"remainingSeconds"`
		Questions        []struct {
			ID       string `json:"id"`
			Selected []int  `json:"selected"`
		} `json:"questions"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&attempt)
	if attempt.Status != "in_progress" || len(attempt.Questions) != 2 {
		t.Fatalf("unexpected attempt: %+v", attempt)
	}
	if attempt.RemainingSeconds <= 0 || attempt.RemainingSeconds > 600 {
		t.Fatalf("unexpected remaining seconds: %d", attempt.RemainingSeconds)
	}

	// Answer one question; re-answering a single_choice replaces the pick.
	for _, idx := range []int{0, 1} {
		resp = examJSON(t, router, http.MethodPost, "/api/v1/exam/attempts/"+attempt.ID+"/answers", gin.H{
			"questionId":  "q1",
			"optionIndex": idx,
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("answer: expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
	}
	var answered struct {
		AnsweredCount int `json:"answeredCount"`
		Questions     []struct {
			ID       string `json:"id"`
			Selected []int  `json:"selected"`
		} `json:"questions"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&answered)
	if answered.AnsweredCount != 1 {
		t.Fatalf("expected 1 answered, got %d", answered.AnsweredCount)
	}
	if got := answered.Questions[0].Selected; len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected selection [1], got %v", got)
	}

	// Submitting evaluates synchronously and completes the step.
	resp = examJSON(t, router, http.MethodPost, "/api/v1/exam/attempts/"+attempt.ID+"/submit", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var submitted struct {
		Status string `json:"status"`
		Result *struct {
			Percentage float64 `json:"percentage"`
			Passed     bool    `json:"passed"`
		} `json:"result"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&submitted)
	if submitted.Status != "evaluated" || submitted.Result == nil || !submitted.Result.Passed {
		t.Fatalf("unexpected submit outcome: %+v", submitted)
	}

	// The attempt is single-use.
	resp = examJSON(t, router, http.MethodPost, "/api/v1/exam/attempts/"+attempt.ID+"/submit", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on resubmit, got %d", resp.Code)
	}

	// The wizard now shows the entrance test completed.
	resp = examJSON(t, router, http.MethodGet, "/api/v1/applications/"+created.ID, nil)
	var wizard struct {
		Steps []struct {
			Key       string `json:"key"`
			Completed bool   `json:"completed"`
		} `json:"steps"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&wizard)
	for _, step := range wizard.Steps {
		if step.Key == universities.StepEntranceTest && !step.Completed {
			t.Fatal("expected entrance test step completed")
		}
	}
}

func TestSecondAttemptRejected(t *testing.T) {
	app, uniID := buildExamApp(t)
	router := app.Router

	resp := examJSON(t, router, http.MethodPost, "/api/v1/applications", gin.H{"universityId": uniID})
	var created struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)

	if resp := examJSON(t, router, http.MethodPost, "/api/v1/applications/"+created.ID+"/exam", nil); resp.Code != http.StatusCreated {
		t.Fatalf("first start: expected 201, got %d", resp.Code)
	}
	if resp := examJSON(t, router, http.MethodPost, "/api/v1/applications/"+created.ID+"/exam", nil); resp.Code != http.StatusConflict {
		t.Fatalf("second start: expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
}
