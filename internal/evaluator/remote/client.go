package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"admissions-backend/internal/evaluator"
)

const defaultTimeout = 30 * time.Second

// Client calls the external result evaluator over HTTP.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient constructs a Client with the default timeout.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type evaluateRequest struct {
	AttemptID string           `json:"attemptId"`
	Responses map[string][]int `json:"responses"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Evaluate posts the responses for scoring. Answers are single-use on the
// evaluator side; a 409 means they are already held there.
func (c *Client) Evaluate(ctx context.Context, attemptID string, responses map[string][]int) (evaluator.Result, error) {
	if responses == nil {
		responses = map[string][]int{}
	}
	payload, err := json.Marshal(evaluateRequest{AttemptID: attemptID, Responses: responses})
	if err != nil {
		return evaluator.Result{}, err
	}

	url := fmt.Sprintf("%s/v1/attempts/%s/evaluation", c.BaseURL, attemptID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return evaluator.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return evaluator.Result{}, &evaluator.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return evaluator.Result{}, &evaluator.RemoteError{Status: resp.StatusCode, Message: err.Error()}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var result evaluator.Result
		if err := json.Unmarshal(body, &result); err != nil {
			return evaluator.Result{}, &evaluator.RemoteError{Status: resp.StatusCode, Message: "malformed result payload"}
		}
		return result, nil
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return evaluator.Result{}, fmt.Errorf("%w: %s", evaluator.ErrValidation, remoteMessage(body))
	case http.StatusNotFound:
		return evaluator.Result{}, evaluator.ErrNotFound
	case http.StatusConflict:
		return evaluator.Result{}, evaluator.ErrAlreadySubmitted
	default:
		return evaluator.Result{}, &evaluator.RemoteError{Status: resp.StatusCode, Message: remoteMessage(body)}
	}
}

func remoteMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no detail"
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
