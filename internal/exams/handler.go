package exams

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"admissions-backend/internal/applications"
	"admissions-backend/internal/evaluator"
	"admissions-backend/internal/shared/server/middleware"
	"admissions-backend/internal/shared/server/respond"
	"admissions-backend/internal/universities"
)

// Handler wires HTTP handlers to the exams service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches entrance-test routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications/:id/exam", h.startAttempt)
	rg.GET("/applications/:id/exam", h.getAttempt)
	rg.POST("/exam/attempts/:id/answers", h.selectOption)
	rg.POST("/exam/attempts/:id/flags", h.toggleFlag)
	rg.POST("/exam/attempts/:id/submit", h.submitAttempt)
	rg.POST("/exam/attempts/:id/evaluation/retry", h.retryEvaluation)
}

func (h *Handler) startAttempt(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	attempt, err := h.Svc.Start(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.writeError(c, err, "failed to start attempt")
		return
	}
	respond.Created(c, toAttemptResponse(attempt, time.Now().UTC()))
}

func (h *Handler) getAttempt(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	attempt, err := h.Svc.GetForApplication(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.JSON(c, http.StatusOK, gin.H{"status": StatusNotStarted})
			return
		}
		h.writeError(c, err, "failed to fetch attempt")
		return
	}
	respond.JSON(c, http.StatusOK, toAttemptResponse(attempt, time.Now().UTC()))
}

func (h *Handler) selectOption(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "questionId and optionIndex are required", nil)
		return
	}

	attempt, err := h.Svc.SelectOption(c.Request.Context(), c.Param("id"), studentID, req.QuestionID, *req.OptionIndex)
	if err != nil {
		h.writeError(c, err, "failed to record answer")
		return
	}
	respond.JSON(c, http.StatusOK, toAttemptResponse(attempt, time.Now().UTC()))
}

func (h *Handler) toggleFlag(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "questionId is required", nil)
		return
	}

	attempt, err := h.Svc.ToggleFlag(c.Request.Context(), c.Param("id"), studentID, req.QuestionID)
	if err != nil {
		h.writeError(c, err, "failed to toggle flag")
		return
	}
	respond.JSON(c, http.StatusOK, toAttemptResponse(attempt, time.Now().UTC()))
}

func (h *Handler) submitAttempt(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	attempt, err := h.Svc.Submit(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.writeError(c, err, "failed to submit attempt")
		return
	}
	respond.JSON(c, http.StatusOK, toAttemptResponse(attempt, time.Now().UTC()))
}

func (h *Handler) retryEvaluation(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	attempt, err := h.Svc.RetryEvaluation(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.writeError(c, err, "failed to retry evaluation")
		return
	}
	respond.JSON(c, http.StatusOK, toAttemptResponse(attempt, time.Now().UTC()))
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var remote *evaluator.RemoteError
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "attempt not found", nil)
	case errors.Is(err, applications.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
	case errors.Is(err, universities.ErrConfigNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "university configuration not found", nil)
	case errors.Is(err, ErrForbidden), errors.Is(err, applications.ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "attempt belongs to another student", nil)
	case errors.Is(err, ErrAttemptExists):
		respond.Error(c, http.StatusConflict, "conflict", "an attempt already exists for this application", nil)
	case errors.Is(err, ErrConflict), errors.Is(err, evaluator.ErrAlreadySubmitted):
		respond.Error(c, http.StatusConflict, "conflict", "answers were already submitted to the evaluator", nil)
	case errors.Is(err, applications.ErrAlreadySubmitted):
		respond.Error(c, http.StatusConflict, "conflict", "application has already been submitted", nil)
	case errors.Is(err, ErrInvalidState):
		respond.Error(c, http.StatusConflict, "invalid_state", err.Error(), nil)
	case errors.Is(err, ErrNotConfigured):
		respond.Error(c, http.StatusConflict, "invalid_state", "entrance test is not configured for this university", nil)
	case errors.Is(err, evaluator.ErrValidation):
		respond.Error(c, http.StatusBadGateway, "remote_error", "evaluator rejected the payload", nil)
	case errors.As(err, &remote):
		respond.Error(c, http.StatusBadGateway, "remote_error", "evaluator is unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
