package applications

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"admissions-backend/internal/shared/server/middleware"
	"admissions-backend/internal/shared/server/respond"
	"admissions-backend/internal/universities"
)

// Handler wires HTTP handlers to the applications service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches application wizard routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications", h.startApplication)
	rg.GET("/applications", h.listApplications)
	rg.GET("/applications/:id", h.getApplication)
	rg.POST("/applications/:id/steps/goto", h.goToStep)
	rg.POST("/applications/:id/steps/next", h.nextStep)
	rg.POST("/applications/:id/steps/previous", h.previousStep)
	rg.PUT("/applications/:id/basic-info", h.saveBasicInfo)
	rg.PUT("/applications/:id/educational-details", h.saveEducationalDetails)
	rg.POST("/applications/:id/submit", h.submitApplication)
}

func (h *Handler) startApplication(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "universityId is required", nil)
		return
	}

	app, created, err := h.Svc.Start(c.Request.Context(), req.UniversityID, studentID)
	if err != nil {
		h.writeError(c, err, "failed to start application")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondWithApplication(c, status, app)
}

func (h *Handler) listApplications(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	apps, err := h.Svc.List(c.Request.Context(), studentID)
	if err != nil {
		h.writeError(c, err, "failed to list applications")
		return
	}

	resp := make([]gin.H, 0, len(apps))
	for _, app := range apps {
		resp = append(resp, gin.H{
			"id":             app.ID,
			"universityId":   app.UniversityID,
			"status":         app.Status,
			"currentStepKey": app.CurrentStepKey,
			"createdAt":      app.CreatedAt,
			"submittedAt":    app.SubmittedAt,
		})
	}
	respond.JSON(c, http.StatusOK, gin.H{"applications": resp})
}

func (h *Handler) getApplication(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	app, err := h.Svc.Get(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.writeError(c, err, "failed to fetch application")
		return
	}
	h.respondWithApplication(c, http.StatusOK, app)
}

func (h *Handler) goToStep(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "stepKey must be a known step", nil)
		return
	}

	app, err := h.Svc.GoTo(c.Request.Context(), c.Param("id"), studentID, req.StepKey)
	if err != nil {
		h.writeError(c, err, "failed to navigate")
		return
	}
	h.respondWithApplication(c, http.StatusOK, app)
}

func (h *Handler) nextStep(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	app, err := h.Svc.Advance(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.writeError(c, err, "failed to navigate")
		return
	}
	h.respondWithApplication(c, http.StatusOK, app)
}

func (h *Handler) previousStep(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	app, err := h.Svc.Retreat(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.writeError(c, err, "failed to navigate")
		return
	}
	h.respondWithApplication(c, http.StatusOK, app)
}

func (h *Handler) saveBasicInfo(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	var req BasicInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid basic info payload", nil)
		return
	}

	app, err := h.Svc.SaveBasicInfo(c.Request.Context(), c.Param("id"), studentID, BasicInfo{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		PostalCode:  req.PostalCode,
	})
	if err != nil {
		h.writeError(c, err, "failed to save basic info")
		return
	}
	h.respondWithApplication(c, http.StatusOK, app)
}

func (h *Handler) saveEducationalDetails(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	var req EducationalDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid educational details payload", nil)
		return
	}

	app, err := h.Svc.SaveEducationalDetails(c.Request.Context(), c.Param("id"), studentID, EducationalDetails{
		HighestQualification: req.HighestQualification,
		Institution:          req.Institution,
		Board:                req.Board,
		YearOfPassing:        req.YearOfPassing,
		GradePercent:         req.GradePercent,
	})
	if err != nil {
		h.writeError(c, err, "failed to save educational details")
		return
	}
	h.respondWithApplication(c, http.StatusOK, app)
}

func (h *Handler) submitApplication(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	app, err := h.Svc.Submit(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.writeError(c, err, "failed to submit application")
		return
	}
	h.respondWithApplication(c, http.StatusOK, app)
}

func (h *Handler) respondWithApplication(c *gin.Context, status int, app Application) {
	seq, err := h.Svc.Sequencer(c.Request.Context(), app)
	if err != nil {
		h.writeError(c, err, "failed to load step configuration")
		return
	}
	respond.JSON(c, status, toResponse(app, seq))
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
	case errors.Is(err, universities.ErrNotFound), errors.Is(err, universities.ErrConfigNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "university configuration not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "application belongs to another student", nil)
	case errors.Is(err, ErrAlreadySubmitted):
		respond.Error(c, http.StatusConflict, "conflict", "application has already been submitted", nil)
	case errors.Is(err, ErrStepsIncomplete):
		details := []map[string]string{}
		var incomplete *IncompleteStepsError
		if errors.As(err, &incomplete) {
			for _, key := range incomplete.Missing {
				details = append(details, map[string]string{"field": key, "issue": "incomplete"})
			}
		}
		respond.Error(c, http.StatusConflict, "invalid_state", "required steps are incomplete", details)
	case errors.Is(err, ErrStepNotEnabled), errors.Is(err, ErrNavigationDenied):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNoStepsConfigured):
		respond.Error(c, http.StatusConflict, "invalid_state", "university has no steps configured", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
