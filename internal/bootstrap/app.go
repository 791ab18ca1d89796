package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"callqa-backend/internal/calls"
	"callqa-backend/internal/dashboard"
	"callqa-backend/internal/dispatch"
	"callqa-backend/internal/llm"
	openai "callqa-backend/internal/llm/openai"
	"callqa-backend/internal/projects"
	"callqa-backend/internal/qa"
	"callqa-backend/internal/seed"
	"callqa-backend/internal/services/health"
	"callqa-backend/internal/shared/cache"
	"callqa-backend/internal/shared/config"
	"callqa-backend/internal/shared/server"
	"callqa-backend/internal/shared/storage/db"
	"callqa-backend/internal/shared/storage/object"
	localstore "callqa-backend/internal/shared/storage/object/local"
	s3store "callqa-backend/internal/shared/storage/object/s3"
	"callqa-backend/internal/sweep"
	"callqa-backend/internal/transcribe"
	"callqa-backend/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store
	Cache  *cache.Cache
	Pool   *dispatch.Pool

	CallsRepo     calls.Repo
	UsersRepo     users.Repo
	ProjectsRepo  projects.Repo
	DashboardRepo dashboard.Repo

	CallsService *calls.Service
	Sweeper      *sweep.Sweeper

	CallsHandler     *calls.Handler
	UsersHandler     *users.Handler
	ProjectsHandler  *projects.Handler
	DashboardHandler *dashboard.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Cache:  cache.New(ctx, cfg.RedisAddr),
		Pool:   dispatch.NewPool(cfg.WorkerPoolSize, cfg.WorkerQueueSize),
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	if cfg.AutoSeedDemo && app.DB != nil {
		if err := seed.Demo(ctx, app.DB); err != nil {
			log.Printf("bootstrap: demo seed failed: %v", err)
		}
	}

	routerDeps := server.RouterDeps{
		Config:           app.Config,
		Health:           health.NewService(app.Pool),
		UsersHandler:     app.UsersHandler,
		CallsHandler:     app.CallsHandler,
		ProjectsHandler:  app.ProjectsHandler,
		DashboardHandler: app.DashboardHandler,
	}
	if isDevLike(cfg.Env) && app.DB != nil {
		routerDeps.SeedDemo = func(ctx context.Context) error {
			return seed.Demo(ctx, app.DB)
		}
	}
	app.Router = server.NewRouter(routerDeps)

	return app, nil
}

// Shutdown drains the worker pool and releases connections.
func (a *App) Shutdown() {
	if a.Pool != nil {
		a.Pool.Shutdown()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Size the connection pool to the pipeline pool: one connection per
	// concurrent Process run plus the claimer.
	opts := db.OptionsFromEnv(db.DefaultWorkerOptions(cfg.WorkerPoolSize))
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion)
	default:
		return localstore.New(cfg.LocalStoreDir)
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	if app.DB != nil {
		app.CallsRepo = &calls.PGRepo{DB: app.DB}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.ProjectsRepo = &projects.PGRepo{DB: app.DB}
		app.DashboardRepo = &dashboard.PGRepo{DB: app.DB}
	} else {
		callsRepo := calls.NewMemoryRepo()
		app.CallsRepo = callsRepo
		app.UsersRepo = users.NewMemoryRepo()
		app.ProjectsRepo = projects.NewMemoryRepo()
		app.DashboardRepo = &dashboard.MemoryRepo{Calls: callsRepo}
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if cfg.LLMProvider == "openai" && cfg.LLMAPIKey != "" {
		client, err := openai.NewClient(cfg.LLMAPIKey, cfg.LLMTimeout)
		if err != nil {
			return err
		}
		llmClient = client
	} else {
		log.Printf("bootstrap: LLM not configured; scoring will degrade")
	}
	scorer := qa.NewGateway(llmClient, cfg.LLMModel, cfg.LLMMaxRetry)

	transcriber, err := transcribe.NewGateway(ctx, cfg.AWSRegion, app.Store, transcribe.Options{
		InputBucket:  cfg.InputBucket,
		OutputBucket: cfg.OutputBucket,
		Language:     cfg.TranscribeLanguage,
		PollInterval: cfg.TranscribePollInterval,
		MaxWait:      cfg.TranscribeMaxWait,
	})
	if err != nil {
		return fmt.Errorf("build transcription gateway: %w", err)
	}

	app.CallsService = calls.NewService(app.CallsRepo, transcriber, scorer, app.Pool, cfg.LLMModel, cfg.ClaimBatchSize)
	app.Sweeper = sweep.New(app.CallsService, cfg.SweepInterval, cfg.ClaimBatchSize)

	app.CallsHandler = calls.NewHandler(app.CallsService, app.CallsRepo, app.Store, cfg.InputBucket)
	app.UsersHandler = users.NewHandler(app.UsersRepo)
	app.ProjectsHandler = projects.NewHandler(app.ProjectsRepo)
	app.DashboardHandler = dashboard.NewHandler(app.DashboardRepo, app.Cache)
	return nil
}
