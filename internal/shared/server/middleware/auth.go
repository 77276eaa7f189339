package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"admissions-backend/internal/shared/auth"
	"admissions-backend/internal/shared/server/respond"
)

const (
	userIDKey         = "userId"
	userRoleKey       = "userRole"
	userEmailKey      = "userEmail"
	userUniversityKey = "userUniversityId"
)

// Role names carried in session tokens.
const (
	RoleSuperAdmin      = "super_admin"
	RoleUniversityAdmin = "university_admin"
	RoleCounsellor      = "counsellor"
	RoleStudent         = "student"
)

// Auth validates session tokens and stores the caller identity in context.
// Payment gateway notifications and the Google sign-in flow carry their own
// verification and are let through unauthenticated.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/auth/") ||
			strings.HasPrefix(path, "/api/v1/payments/notification") {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyToken(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(userIDKey, claims.Subject)
			c.Set(userRoleKey, claims.Role)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			if claims.UniversityID != "" {
				c.Set(userUniversityKey, claims.UniversityID)
			}
			c.Next()
			return
		}

		// Dev-only identity header so local clients and tests can act as a
		// student without a signed token.
		if isDevLike(env) {
			if studentID := strings.TrimSpace(c.GetHeader("X-Student-Id")); studentID != "" {
				c.Set(userIDKey, studentID)
				c.Set(userRoleKey, RoleStudent)
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
	}
}

// RequireRoles rejects callers whose role is not in the allowed set.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := RoleFromContext(c)
		if _, ok := allowed[role]; !ok {
			respond.Error(c, http.StatusForbidden, "forbidden", "insufficient role", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// RoleFromContext fetches the role set by the auth middleware.
func RoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userRoleKey)
	if role, ok := val.(string); ok {
		return role
	}
	return ""
}

// UniversityIDFromContext fetches the university scope set by the auth middleware.
func UniversityIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userUniversityKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
