package universities

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"admissions-backend/internal/shared/server/middleware"
	"admissions-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler and registers the stepkey validation used
// by config payloads.
func NewHandler(svc *Service) *Handler {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("stepkey", func(fl validator.FieldLevel) bool {
			key := fl.Field().String()
			for _, s := range MasterSteps {
				if s == key {
					return true
				}
			}
			return false
		})
	}
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches university routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/universities", middleware.RequireRoles(middleware.RoleSuperAdmin))
	admin.POST("", h.create)
	admin.GET("", h.list)

	rg.PUT("/universities/:id/config",
		middleware.RequireRoles(middleware.RoleSuperAdmin, middleware.RoleUniversityAdmin),
		h.saveConfig)
	rg.GET("/universities/:id/config", h.getConfig)
}

type createRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	u, err := h.Svc.Create(c.Request.Context(), req.Name, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrDuplicateCode):
			respond.Error(c, http.StatusConflict, "conflict", "university code already exists", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create university", nil)
		}
		return
	}

	respond.Created(c, toResponse(u))
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	list, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list universities", nil)
		return
	}

	resp := make([]UniversityResponse, 0, len(list))
	for _, u := range list {
		resp = append(resp, toResponse(u))
	}
	respond.OK(c, resp)
}

type saveConfigRequest struct {
	Steps               []string           `json:"steps" binding:"required,min=1,dive,stepkey"`
	RequiredDocuments   []RequiredDocument `json:"requiredDocuments"`
	FeeAmount           int64              `json:"feeAmount"`
	TestDurationSeconds int                `json:"testDurationSeconds"`
	TestQuestions       []Question         `json:"testQuestions"`
}

func (h *Handler) saveConfig(c *gin.Context) {
	universityID := c.Param("id")
	if role := middleware.RoleFromContext(c); role == middleware.RoleUniversityAdmin {
		if middleware.UniversityIDFromContext(c) != universityID {
			respond.Error(c, http.StatusForbidden, "forbidden", "not an admin of this university", nil)
			return
		}
	}

	var req saveConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	cfg, err := h.Svc.SaveConfig(c.Request.Context(), RegistrationConfig{
		UniversityID:        universityID,
		Steps:               req.Steps,
		RequiredDocuments:   req.RequiredDocuments,
		FeeAmount:           req.FeeAmount,
		TestDurationSeconds: req.TestDurationSeconds,
		TestQuestions:       req.TestQuestions,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "university not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save config", nil)
		}
		return
	}

	respond.OK(c, toConfigResponse(cfg))
}

func (h *Handler) getConfig(c *gin.Context) {
	universityID := c.Param("id")

	cfg, err := h.Svc.GetConfig(c.Request.Context(), universityID)
	if err != nil {
		switch {
		case errors.Is(err, ErrConfigNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "registration config not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch config", nil)
		}
		return
	}

	respond.OK(c, toConfigResponse(cfg))
}
