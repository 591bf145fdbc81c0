package controllers

import (
	"questlog/config"
	"questlog/internal/database"
	"questlog/internal/events"
	"questlog/internal/repositories"
	"questlog/internal/services"

	gameController "questlog/internal/controllers/games"
	userController "questlog/internal/controllers/users"
)

type Controllers struct {
	Game gameController.GameControllerInterface
	User userController.UserControllerInterface
}

func New(
	repos repositories.Repository,
	services services.Service,
	eventBus *events.EventBus,
	config config.Config,
	db database.DB,
) Controllers {
	return Controllers{
		Game: gameController.New(repos, services, eventBus, config, db),
		User: userController.New(repos, config, db),
	}
}
