package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"admissions-backend/internal/evaluator"
)

func TestEvaluateSuccess(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(evaluator.Result{
			MarksObtained: 8, TotalMarks: 10, Percentage: 80,
			Correct: 4, Incorrect: 1, Unanswered: 0, Passed: true,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key-1")
	result, err := client.Evaluate(context.Background(), "attempt-1", map[string][]int{"q1": {0}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if gotPath != "/v1/attempts/attempt-1/evaluation" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotBody["attemptId"] != "attempt-1" {
		t.Fatalf("expected attemptId in payload, got %v", gotBody)
	}
	if !result.Passed || result.Percentage != 80 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestEvaluateNilResponsesSentAsEmptyMap(t *testing.T) {
	var gotBody struct {
		Responses map[string][]int `json:"responses"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(evaluator.Result{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	if _, err := client.Evaluate(context.Background(), "attempt-1", nil); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if gotBody.Responses == nil {
		t.Fatalf("expected an empty responses map, got null")
	}
}

func TestEvaluateErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, evaluator.ErrValidation},
		{http.StatusNotFound, evaluator.ErrNotFound},
		{http.StatusConflict, evaluator.ErrAlreadySubmitted},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"code":"x","message":"detail"}}`))
		}))
		client := NewClient(srv.URL, "")
		_, err := client.Evaluate(context.Background(), "attempt-1", map[string][]int{})
		srv.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestEvaluateServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Evaluate(context.Background(), "attempt-1", map[string][]int{})
	if !evaluator.IsRetryable(err) {
		t.Fatalf("expected retryable remote error, got %v", err)
	}
}

func TestEvaluateNetworkErrorIsRetryable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "")
	_, err := client.Evaluate(context.Background(), "attempt-1", map[string][]int{})
	if !evaluator.IsRetryable(err) {
		t.Fatalf("expected retryable remote error, got %v", err)
	}
}
