package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"admissions-backend/internal/shared/auth"
	"admissions-backend/internal/shared/server/middleware"
	"admissions-backend/internal/shared/server/respond"
	"admissions-backend/internal/universities"
)

// Handler wires HTTP handlers to the users service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches account routes. Registration lives under /auth/
// so the auth middleware lets it through unauthenticated.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.registerStudent)
	rg.GET("/users/me", h.me)

	admins := rg.Group("")
	admins.Use(middleware.RequireRoles(middleware.RoleSuperAdmin, middleware.RoleUniversityAdmin))
	admins.POST("/users/staff", h.createStaff)
	admins.GET("/users", h.listUsers)
}

type registerRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

type createStaffRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name"`
	Role         string `json:"role" binding:"required,oneof=university_admin counsellor"`
	UniversityID string `json:"universityId"`
}

type userResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Role         string    `json:"role"`
	UniversityID string    `json:"universityId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		UniversityID: u.UniversityID,
		CreatedAt:    u.CreatedAt,
	}
}

func (h *Handler) registerStudent(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "a valid email is required", nil)
		return
	}

	u, err := h.Svc.RegisterStudent(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		h.writeError(c, err, "failed to register")
		return
	}

	token, err := auth.SignToken(auth.Claims{
		Role:             u.Role,
		Email:            u.Email,
		Name:             u.Name,
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID},
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	respond.Created(c, gin.H{"user": toUserResponse(u), "token": token})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err, "failed to fetch account")
		return
	}
	respond.JSON(c, http.StatusOK, toUserResponse(u))
}

func (h *Handler) createStaff(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email and a valid role are required", nil)
		return
	}

	u, err := h.Svc.CreateStaff(c.Request.Context(),
		middleware.RoleFromContext(c), middleware.UniversityIDFromContext(c),
		req.Email, req.Name, req.Role, req.UniversityID)
	if err != nil {
		h.writeError(c, err, "failed to create account")
		return
	}
	respond.Created(c, toUserResponse(u))
}

func (h *Handler) listUsers(c *gin.Context) {
	universityID := c.Query("universityId")
	if middleware.RoleFromContext(c) != middleware.RoleSuperAdmin {
		universityID = middleware.UniversityIDFromContext(c)
	}

	found, err := h.Svc.ListByUniversity(c.Request.Context(), universityID)
	if err != nil {
		h.writeError(c, err, "failed to list accounts")
		return
	}

	out := make([]userResponse, 0, len(found))
	for _, u := range found {
		out = append(out, toUserResponse(u))
	}
	respond.JSON(c, http.StatusOK, gin.H{"users": out})
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, universities.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "university not found", nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, "conflict", "email already registered", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "insufficient role", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
