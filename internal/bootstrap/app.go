package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"admissions-backend/internal/applications"
	googleauth "admissions-backend/internal/auth"
	"admissions-backend/internal/documents"
	"admissions-backend/internal/evaluator"
	evalremote "admissions-backend/internal/evaluator/remote"
	"admissions-backend/internal/exams"
	"admissions-backend/internal/leads"
	"admissions-backend/internal/payments"
	"admissions-backend/internal/queue"
	"admissions-backend/internal/shared/config"
	"admissions-backend/internal/shared/server"
	"admissions-backend/internal/shared/storage/db"
	"admissions-backend/internal/shared/storage/object"
	localstore "admissions-backend/internal/shared/storage/object/local"
	s3store "admissions-backend/internal/shared/storage/object/s3"
	"admissions-backend/internal/universities"
	"admissions-backend/internal/users"
)

// App holds shared dependencies built from configuration.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	UniversitiesRepo universities.Repo
	ApplicationsRepo applications.Repo
	DocumentsRepo    documents.Repo
	AttemptsRepo     exams.Repo
	PaymentsRepo     payments.Repo
	LeadsRepo        leads.Repo
	UsersRepo        users.Repo

	UniversitiesService *universities.Service
	ApplicationsService *applications.Service
	DocumentsService    *documents.Service
	ExamsService        *exams.Service
	PaymentsService     *payments.Service
	LeadsService        *leads.Service
	UsersService        *users.Service
	SessionEngine       *exams.Engine
	EvalProcessor       EvalProcessor

	UniversitiesHandler *universities.Handler
	ApplicationsHandler *applications.Handler
	DocumentsHandler    *documents.Handler
	ExamsHandler        *exams.Handler
	PaymentsHandler     *payments.Handler
	LeadsHandler        *leads.Handler
	UsersHandler        *users.Handler
	GoogleAuth          *googleauth.GoogleService
}

// EvalProcessor allows callers to override attempt evaluation for tests.
type EvalProcessor interface {
	Evaluate(ctx context.Context, attemptID string) (exams.Attempt, error)
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              app.Config,
		UniversitiesHandler: app.UniversitiesHandler,
		ApplicationsHandler: app.ApplicationsHandler,
		DocumentsHandler:    app.DocumentsHandler,
		ExamsHandler:        app.ExamsHandler,
		PaymentsHandler:     app.PaymentsHandler,
		LeadsHandler:        app.LeadsHandler,
		UsersHandler:        app.UsersHandler,
		GoogleAuth:          app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.EvalQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.EvalQueueURL)
}

func buildServices(app *App) {
	if app.DB != nil {
		app.UniversitiesRepo = &universities.PGRepo{DB: app.DB}
		app.ApplicationsRepo = &applications.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.AttemptsRepo = &exams.PGRepo{DB: app.DB}
		app.PaymentsRepo = &payments.PGRepo{DB: app.DB}
		app.LeadsRepo = &leads.PGRepo{DB: app.DB}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	} else {
		app.UniversitiesRepo = universities.NewMemoryRepo()
		app.ApplicationsRepo = applications.NewMemoryRepo()
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.AttemptsRepo = exams.NewMemoryRepo()
		app.PaymentsRepo = payments.NewMemoryRepo()
		app.LeadsRepo = leads.NewMemoryRepo()
		app.UsersRepo = users.NewMemoryRepo()
	}

	app.UniversitiesService = &universities.Service{Repo: app.UniversitiesRepo}
	app.ApplicationsService = &applications.Service{
		Repo:    app.ApplicationsRepo,
		UniRepo: app.UniversitiesRepo,
	}
	app.DocumentsService = &documents.Service{
		Repo:    app.DocumentsRepo,
		Store:   app.Store,
		Apps:    app.ApplicationsService,
		UniRepo: app.UniversitiesRepo,
	}

	var eval evaluator.Evaluator
	if strings.TrimSpace(app.Config.EvaluatorBaseURL) != "" {
		eval = evalremote.NewClient(app.Config.EvaluatorBaseURL, app.Config.EvaluatorAPIKey)
	}
	app.ExamsService = &exams.Service{
		Repo:    app.AttemptsRepo,
		Apps:    app.ApplicationsService,
		UniRepo: app.UniversitiesRepo,
		Eval:    eval,
		Queue:   app.Queue,
	}
	app.SessionEngine = exams.NewEngine(app.ExamsService.ExpireHook())
	app.ExamsService.Engine = app.SessionEngine
	app.EvalProcessor = app.ExamsService

	app.PaymentsService = &payments.Service{
		Repo:    app.PaymentsRepo,
		Apps:    app.ApplicationsService,
		UniRepo: app.UniversitiesRepo,
	}
	if strings.TrimSpace(app.Config.MidtransServerKey) != "" {
		app.PaymentsService.Snap = payments.NewSnapClient(app.Config.MidtransServerKey, app.Config.MidtransProduction)
		app.PaymentsService.Core = payments.NewCoreClient(app.Config.MidtransServerKey, app.Config.MidtransProduction)
	}

	app.LeadsService = &leads.Service{Repo: app.LeadsRepo, UniRepo: app.UniversitiesRepo}
	app.UsersService = &users.Service{Repo: app.UsersRepo, UniRepo: app.UniversitiesRepo}

	app.UniversitiesHandler = universities.NewHandler(app.UniversitiesService)
	app.ApplicationsHandler = applications.NewHandler(app.ApplicationsService)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.ExamsHandler = exams.NewHandler(app.ExamsService)
	app.PaymentsHandler = payments.NewHandler(app.PaymentsService)
	app.LeadsHandler = leads.NewHandler(app.LeadsService)
	app.UsersHandler = users.NewHandler(app.UsersService)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		app.UsersService,
	)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
