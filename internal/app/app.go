package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/handlers"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/providers"
	"github.com/lunahan/aestimo/internal/services/acquisition"
	"github.com/lunahan/aestimo/internal/services/analysts"
	"github.com/lunahan/aestimo/internal/services/artifacts"
	"github.com/lunahan/aestimo/internal/services/catalog"
	"github.com/lunahan/aestimo/internal/services/events"
	"github.com/lunahan/aestimo/internal/services/llm"
	"github.com/lunahan/aestimo/internal/services/newsfeed"
	"github.com/lunahan/aestimo/internal/services/pipeline"
	"github.com/lunahan/aestimo/internal/services/scheduler"
	"github.com/lunahan/aestimo/internal/services/summarizer"
	"github.com/lunahan/aestimo/internal/services/tasks"
	"github.com/lunahan/aestimo/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB *badger.BadgerDB

	// Core services
	EventService   interfaces.EventService
	LLMService     interfaces.LLMService
	Registry       interfaces.ProviderRegistry
	CatalogService interfaces.CatalogService
	TaskService    interfaces.TaskService
	ArtifactStore  interfaces.ArtifactStore
	Summarizer     interfaces.SummarizerService
	Acquisition    interfaces.AcquisitionService
	Newsfeed       interfaces.NewsfeedService
	Analysts       interfaces.AnalystService
	Pipeline       *pipeline.Service
	Scheduler      interfaces.SchedulerService

	// HTTP handlers
	AnalysisHandler *handlers.AnalysisHandler
	StreamHandler   *handlers.StreamHandler
	WSHandler       *handlers.WSHandler
	HealthHandler   *handlers.HealthHandler
}

// New wires the full dependency graph: storage, the provider registry
// (probed and pinned here, once per process), the LLM stack, the
// analysis services and the HTTP handlers.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	db, err := badger.NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	a.DB = db

	a.EventService = events.NewService(logger)

	llmService, err := llm.NewLLMService(cfg.LLM, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.LLMService = llmService

	registry := providers.NewRegistry(cfg.Providers, logger)
	if err := registry.Initialize(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("provider probing failed: %w", err)
	}
	a.Registry = registry

	catalogService := catalog.NewService(registry, badger.NewCatalogStorage(db, logger), logger)
	a.CatalogService = catalogService
	if catalogService.Count() == 0 {
		logger.Warn().Msg("Static catalogue is empty; run 'aestimo bootstrap' to populate it")
	}

	a.TaskService = tasks.NewService(badger.NewTaskStorage(db, logger), logger)
	a.ArtifactStore = artifacts.NewService(cfg.Storage.Artifacts.Root, logger)
	a.Summarizer = summarizer.NewService(llmService, cfg.LLM.ContextWindow, logger)
	a.Acquisition = acquisition.NewService(registry, a.Summarizer, a.ArtifactStore, catalogService, logger)
	a.Newsfeed = newsfeed.NewService(cfg.Newsfeed, llmService, logger)
	a.Analysts = analysts.NewService(llmService, a.ArtifactStore, a.EventService, logger)

	a.Pipeline = pipeline.NewService(
		cfg,
		a.Acquisition,
		a.Analysts,
		a.Newsfeed,
		a.ArtifactStore,
		catalogService,
		a.EventService,
		logger,
	)

	a.Scheduler = scheduler.NewService(&cfg.Scheduler, catalogService, logger)

	a.AnalysisHandler = handlers.NewAnalysisHandler(a.Pipeline, a.TaskService, logger)
	a.StreamHandler = handlers.NewStreamHandler(a.Pipeline, a.EventService, logger)
	a.WSHandler = handlers.NewWSHandler(a.EventService, logger)
	a.HealthHandler = handlers.NewHealthHandler(llmService, catalogService, common.GetVersion(), logger)

	logger.Info().
		Str("llm", llmService.Name()).
		Int("catalogue_listings", catalogService.Count()).
		Msg("Application initialized")
	return a, nil
}

// Close releases every component in reverse dependency order. Safe to
// call on a partially constructed App.
func (a *App) Close() {
	if a.WSHandler != nil {
		a.WSHandler.Close()
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event bus")
		}
	}
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close badger store")
		}
	}
}
