package leads

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"admissions-backend/internal/shared/server/middleware"
	"admissions-backend/internal/shared/server/respond"
	"admissions-backend/internal/universities"
)

// Handler wires HTTP handlers to the leads service. All routes are staff-only.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches counselling-pipeline routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	staff := rg.Group("")
	staff.Use(middleware.RequireRoles(middleware.RoleUniversityAdmin, middleware.RoleCounsellor, middleware.RoleSuperAdmin))
	staff.POST("/leads", h.createLead)
	staff.GET("/leads", h.listLeads)
	staff.GET("/leads/:id", h.getLead)
	staff.POST("/leads/:id/assign", h.assignLead)
	staff.POST("/leads/:id/stage", h.advanceStage)
	staff.POST("/leads/:id/notes", h.addNote)
}

type createLeadRequest struct {
	UniversityID string `json:"universityId"`
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"omitempty,email"`
	Phone        string `json:"phone"`
	Source       string `json:"source"`
}

type leadResponse struct {
	ID           string    `json:"id"`
	UniversityID string    `json:"universityId"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Source       string    `json:"source,omitempty"`
	Stage        string    `json:"stage"`
	AssignedTo   string    `json:"assignedTo,omitempty"`
	Notes        []Note    `json:"notes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toLeadResponse(lead Lead) leadResponse {
	notes := lead.Notes
	if notes == nil {
		notes = []Note{}
	}
	return leadResponse{
		ID:           lead.ID,
		UniversityID: lead.UniversityID,
		Name:         lead.Name,
		Email:        lead.Email,
		Phone:        lead.Phone,
		Source:       lead.Source,
		Stage:        lead.Stage,
		AssignedTo:   lead.AssignedTo,
		Notes:        notes,
		CreatedAt:    lead.CreatedAt,
		UpdatedAt:    lead.UpdatedAt,
	}
}

// callerUniversity resolves the university a staff caller operates on.
// super_admin may pass any university; everyone else is pinned to their own.
func callerUniversity(c *gin.Context, requested string) string {
	if middleware.RoleFromContext(c) == middleware.RoleSuperAdmin {
		return requested
	}
	return middleware.UniversityIDFromContext(c)
}

func (h *Handler) createLead(c *gin.Context) {
	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		return
	}

	universityID := callerUniversity(c, req.UniversityID)
	if universityID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "universityId is required", nil)
		return
	}

	lead, err := h.Svc.Create(c.Request.Context(), universityID, req.Name, req.Email, req.Phone, req.Source)
	if err != nil {
		h.writeError(c, err, "failed to create lead")
		return
	}
	respond.Created(c, toLeadResponse(lead))
}

func (h *Handler) listLeads(c *gin.Context) {
	universityID := callerUniversity(c, c.Query("universityId"))
	if universityID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "universityId is required", nil)
		return
	}

	filter := Filter{
		Stage:      c.Query("stage"),
		AssignedTo: c.Query("assignedTo"),
		Limit:      20,
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}

	found, err := h.Svc.List(c.Request.Context(), universityID, filter)
	if err != nil {
		h.writeError(c, err, "failed to list leads")
		return
	}

	out := make([]leadResponse, 0, len(found))
	for _, lead := range found {
		out = append(out, toLeadResponse(lead))
	}
	respond.JSON(c, http.StatusOK, gin.H{"leads": out})
}

func (h *Handler) getLead(c *gin.Context) {
	lead, err := h.Svc.Get(c.Request.Context(), c.Param("id"), callerUniversity(c, ""))
	if err != nil {
		h.writeError(c, err, "failed to fetch lead")
		return
	}
	respond.JSON(c, http.StatusOK, toLeadResponse(lead))
}

func (h *Handler) assignLead(c *gin.Context) {
	var req struct {
		CounsellorID string `json:"counsellorId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "counsellorId is required", nil)
		return
	}

	lead, err := h.Svc.Assign(c.Request.Context(), c.Param("id"), callerUniversity(c, ""), req.CounsellorID)
	if err != nil {
		h.writeError(c, err, "failed to assign lead")
		return
	}
	respond.JSON(c, http.StatusOK, toLeadResponse(lead))
}

func (h *Handler) advanceStage(c *gin.Context) {
	var req struct {
		Stage string `json:"stage" binding:"required,oneof=contacted qualified converted lost"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "stage must be one of contacted, qualified, converted, lost", nil)
		return
	}

	lead, err := h.Svc.AdvanceStage(c.Request.Context(), c.Param("id"), callerUniversity(c, ""), req.Stage)
	if err != nil {
		h.writeError(c, err, "failed to change stage")
		return
	}
	respond.JSON(c, http.StatusOK, toLeadResponse(lead))
}

func (h *Handler) addNote(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
		return
	}

	lead, err := h.Svc.AddNote(c.Request.Context(), c.Param("id"), callerUniversity(c, ""),
		middleware.UserIDFromContext(c), req.Text)
	if err != nil {
		h.writeError(c, err, "failed to add note")
		return
	}
	respond.JSON(c, http.StatusOK, toLeadResponse(lead))
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "lead not found", nil)
	case errors.Is(err, universities.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "university not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "lead belongs to another university", nil)
	case errors.Is(err, ErrInvalidState):
		respond.Error(c, http.StatusConflict, "invalid_state", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
