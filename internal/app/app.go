package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/api"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/cache"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/drive"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/ingest"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/pipeline"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/projection"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/remote"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository/memory"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository/postgres"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/service"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/storage"
)

// Options select which backends are started.
type Options struct {
	// InMemory keeps all planning data in process instead of postgres.
	InMemory bool
	// WithRemote connects the remote sync store when a DSN is configured.
	WithRemote bool
	// WithDrive starts the Drive client when credentials are configured.
	WithDrive bool
}

// App holds the wired services of one process.
type App struct {
	Config       *config.Config
	Repo         repository.PlanningRepository
	Parser       *ingest.Parser
	Ingestion    *service.IngestionService
	Planning     *service.PlanningService
	Sync         *service.SyncService
	Orchestrator *pipeline.Orchestrator
	Runs         *pipeline.Tracker
	Storage      storage.ObjectStorage
	Drive        *drive.Handler

	closers []func()
}

// New connects the configured backends. Optional backends that fail to start
// are logged and left out.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	if opts.InMemory {
		a.Repo = memory.New()
	} else {
		db, err := postgres.NewDB(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, func() { db.Close() })
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.Repo = postgres.NewPlanningRepository(db)
	}

	planningCache, err := cache.NewPlanningCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, caching disabled")
		planningCache = cache.NewNoopPlanningCache()
	}

	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("Object storage unavailable, archive and intake disabled")
		} else {
			a.Storage = client
		}
	}

	a.Parser = ingest.NewParser(nil, cfg.Ingest, cfg.App.TempDir)
	a.Ingestion = service.NewIngestionService(a.Repo, a.Parser, planningCache, a.Storage, cfg.Ingest)
	a.Planning = service.NewPlanningService(a.Repo, projection.NewEngine(a.Repo, cfg.Projection), planningCache)
	a.Runs = pipeline.NewTracker(0)
	a.Orchestrator = pipeline.NewOrchestrator(a.Ingestion, a.Parser.Catalog(), pipeline.DefaultConfig(), a.Runs)

	if opts.WithRemote && cfg.Remote.DSN != "" {
		store, err := remote.Connect(ctx, cfg.Remote.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("Remote database unavailable, sync disabled")
		} else {
			a.closers = append(a.closers, store.Close)
			a.Sync = service.NewSyncService(a.Parser, store, cfg.Remote)
		}
	}

	if opts.WithDrive && cfg.Drive.CredentialsJSON != "" {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			log.Warn().Err(err).Msg("Google Drive unavailable, drive intake disabled")
		} else {
			a.Drive = drive.NewHandler(driveService, a.Orchestrator, cfg.App.TempDir, cfg.Drive.FolderID)
		}
	}

	return a, nil
}

// Router builds the HTTP API over the wired services.
func (a *App) Router() *gin.Engine {
	return api.NewRouter(&api.Services{
		Ingestion: a.Ingestion,
		Planning:  a.Planning,
		Sync:      a.Sync,
		Runner:    a.Orchestrator,
		Runs:      a.Runs,
		Intake:    a.Storage,
		Drive:     a.Drive,
		TempDir:   a.Config.App.UploadDir,
	}, a.Config.Server.AllowedOrigins)
}

// Close releases backends in reverse start order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
