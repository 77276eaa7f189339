package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"admissions-backend/internal/applications"
	googleauth "admissions-backend/internal/auth"
	"admissions-backend/internal/documents"
	"admissions-backend/internal/exams"
	"admissions-backend/internal/leads"
	"admissions-backend/internal/payments"
	"admissions-backend/internal/shared/config"
	"admissions-backend/internal/shared/metrics"
	"admissions-backend/internal/shared/server/middleware"
	"admissions-backend/internal/shared/server/respond"
	"admissions-backend/internal/universities"
	"admissions-backend/internal/users"
)

// RouterDeps carries the handlers wired by bootstrap.
type RouterDeps struct {
	Config              config.Config
	UniversitiesHandler *universities.Handler
	ApplicationsHandler *applications.Handler
	DocumentsHandler    *documents.Handler
	ExamsHandler        *exams.Handler
	PaymentsHandler     *payments.Handler
	LeadsHandler        *leads.Handler
	UsersHandler        *users.Handler
	GoogleAuth          *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Probes and scrapes stay outside the auth chain.
	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
	)

	api := r.Group("/api/v1")
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterRoutes(api)
	}
	if deps.UniversitiesHandler != nil {
		deps.UniversitiesHandler.RegisterRoutes(api)
	}
	if deps.ApplicationsHandler != nil {
		deps.ApplicationsHandler.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.ExamsHandler != nil {
		deps.ExamsHandler.RegisterRoutes(api)
	}
	if deps.PaymentsHandler != nil {
		deps.PaymentsHandler.RegisterRoutes(api)
	}
	if deps.LeadsHandler != nil {
		deps.LeadsHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
