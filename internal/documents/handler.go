package documents

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"admissions-backend/internal/applications"
	"admissions-backend/internal/shared/server/middleware"
	"admissions-backend/internal/shared/server/respond"
	"admissions-backend/internal/universities"
)

// Handler wires HTTP handlers to the documents service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches checklist routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/applications/:id/documents", h.getChecklist)
	rg.POST("/applications/:id/documents", h.uploadDocument)
	rg.DELETE("/applications/:id/documents/:name", h.deleteDocument)
	rg.GET("/applications/:id/documents/:name/file", h.downloadDocument)

	staff := rg.Group("")
	staff.Use(middleware.RequireRoles(middleware.RoleUniversityAdmin, middleware.RoleCounsellor, middleware.RoleSuperAdmin))
	staff.POST("/documents/:id/review", h.reviewDocument)
}

func (h *Handler) getChecklist(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	entries, err := h.Svc.Checklist(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.writeError(c, err, "failed to load checklist")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"documents": toChecklistResponse(entries)})
}

func (h *Handler) uploadDocument(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "documentName, fileName and content are required", nil)
		return
	}

	doc, err := h.Svc.Upload(c.Request.Context(), c.Param("id"), studentID, req.DocumentName, req.FileName, req.Content)
	if err != nil {
		h.writeError(c, err, "failed to upload document")
		return
	}
	respond.Created(c, toDocumentResponse(doc))
}

func (h *Handler) deleteDocument(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), c.Param("id"), studentID, c.Param("name")); err != nil {
		h.writeError(c, err, "failed to delete document")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) downloadDocument(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	doc, rc, err := h.Svc.Open(c.Request.Context(), c.Param("id"), studentID, c.Param("name"))
	if err != nil {
		h.writeError(c, err, "failed to open document")
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.Header("Content-Type", doc.MimeType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) reviewDocument(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "status must be verified or rejected", nil)
		return
	}

	doc, err := h.Svc.Review(c.Request.Context(), c.Param("id"), req.Status, req.Reason)
	if err != nil {
		h.writeError(c, err, "failed to review document")
		return
	}
	respond.JSON(c, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, applications.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
	case errors.Is(err, universities.ErrConfigNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "university configuration not found", nil)
	case errors.Is(err, applications.ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "application belongs to another student", nil)
	case errors.Is(err, applications.ErrAlreadySubmitted):
		respond.Error(c, http.StatusConflict, "conflict", "application has already been submitted", nil)
	case errors.Is(err, ErrAlreadyLive):
		respond.Error(c, http.StatusConflict, "conflict", "a non-rejected upload already exists for this document", nil)
	case errors.Is(err, ErrVerifiedLocked):
		respond.Error(c, http.StatusConflict, "invalid_state", "verified documents cannot be removed", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
