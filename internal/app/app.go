package app

import (
	"questlog/config"
	"questlog/internal/controllers"
	"questlog/internal/database"
	"questlog/internal/events"
	"questlog/internal/handlers/middleware"
	"questlog/internal/jobs"
	"questlog/internal/repositories"
	"questlog/internal/services"
	"questlog/internal/websockets"

	logger "github.com/Bparsons0904/goLogger"
)

type App struct {
	Database    database.DB
	Middleware  middleware.Middleware
	Websocket   *websockets.Manager
	EventBus    *events.EventBus
	Config      config.Config
	Services    services.Service
	Repos       repositories.Repository
	Controllers controllers.Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	// In development the schema is created on boot; deployed environments
	// run the migration binary instead.
	if config.Environment == "development" {
		if err := db.MigrateModels(); err != nil {
			return &App{}, log.Err("failed to migrate models", err)
		}
		if err := db.CreateIndexes(); err != nil {
			return &App{}, log.Err("failed to create indexes", err)
		}
	}

	eventBus := events.New(db.Cache.Events)

	appServices, err := services.New(db, config)
	if err != nil {
		return &App{}, log.Err("failed to initialize services", err)
	}

	repos := repositories.New(db)

	appControllers := controllers.New(repos, appServices, eventBus, config, db)

	websocket, err := websockets.New(db, eventBus, appServices.Supabase, repos.User)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	appMiddleware := middleware.New(db, config, repos, appServices.Supabase)

	if config.SchedulerEnabled {
		auditJob := jobs.NewLibraryAuditJob(
			repos.Game,
			appServices.Transaction,
			services.Daily,
		)
		if err := appServices.Scheduler.AddJob(auditJob); err != nil {
			return &App{}, log.Err("failed to register library audit job", err)
		}
		appServices.Scheduler.Start()
		log.Info("Registered library audit job with scheduler")
	}

	app := &App{
		Database:    db,
		Middleware:  appMiddleware,
		Websocket:   websocket,
		EventBus:    eventBus,
		Config:      config,
		Services:    appServices,
		Repos:       repos,
		Controllers: appControllers,
	}

	log.Info("App initialized successfully")
	return app, nil
}

func (a *App) Close() error {
	log := logger.New("app").Function("Close")

	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Stop()
	}

	if a.Websocket != nil {
		a.Websocket.Close()
	}

	if a.EventBus != nil {
		if err := a.EventBus.Close(); err != nil {
			log.Er("failed to close event bus", err)
		}
	}

	if err := a.Database.Close(); err != nil {
		return log.Err("failed to close database", err)
	}

	return nil
}
