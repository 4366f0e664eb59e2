package main

import (
	"errors"

	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/internal/handlers"
	"github.com/meshflow/meshflow/backend/internal/identity"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/services"
	"github.com/meshflow/meshflow/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	db        *gorm.DB
	redis     *redis.Client
	sessions  identity.Strategy
	taskQueue services.TaskQueue
	worker    *services.Worker

	healthHandler    *handlers.HealthHandler
	authHandler      *handlers.AuthHandler
	userHandler      *handlers.UserHandler
	workspaceHandler *handlers.WorkspaceHandler
	memberHandler    *handlers.MemberHandler
	canvasHandler    *handlers.CanvasHandler
	activityHandler  *handlers.ActivityHandler
}

// bootstrap initializes all application dependencies: database, sessions, queue.
func bootstrap(cfg *config.Config) *appServices {
	db, err := models.Open(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = identity.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
	}

	sessions, err := identity.New(cfg, db, rdb)
	if err != nil {
		logger.Fatalf("Failed to initialize sessions: %v", err)
	}
	logger.Info().Str("strategy", sessions.Name()).Msg("Session strategy ready")

	embedder, err := services.NewEmbedder(&cfg.AI)
	if err != nil {
		if !errors.Is(err, services.ErrAutoLinkDisabled) {
			logger.Fatalf("Failed to initialize embedding provider: %v", err)
		}
		logger.Warn().Str("provider", cfg.AI.Provider).Msg("Auto-linking disabled: no usable embedding provider")
		embedder = nil
	}

	access := services.NewAccessService(db)
	activity := services.NewActivityService(db, &cfg.Activity)
	account := services.NewAccountService(db)
	auth := services.NewAuthService(db)
	workspace := services.NewWorkspaceService(db, access, activity)
	member := services.NewMemberService(db, access, activity)
	canvas := services.NewCanvasService(db, access, activity)

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.NewTaskQueue(cfg)
	autoLink := services.NewAutoLinkService(db, access, activity, embedder, taskQueue, &cfg.AI)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(autoLink.ProcessTask)
	}

	// Start async worker if the queue is backed by Redis
	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(autoLink.ProcessTask)
			worker.Start()
		}
	}

	return &appServices{
		db:        db,
		redis:     rdb,
		sessions:  sessions,
		taskQueue: taskQueue,
		worker:    worker,

		healthHandler:    handlers.NewHealthHandler(db),
		authHandler:      handlers.NewAuthHandler(auth, sessions),
		userHandler:      handlers.NewUserHandler(account, auth, sessions),
		workspaceHandler: handlers.NewWorkspaceHandler(workspace),
		memberHandler:    handlers.NewMemberHandler(member),
		canvasHandler:    handlers.NewCanvasHandler(canvas, autoLink),
		activityHandler:  handlers.NewActivityHandler(access, activity),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if err := models.Close(s.db); err != nil {
		logger.Warn().Err(err).Msg("Failed to close database")
	}
	logger.Info().Msg("All services stopped")
}
