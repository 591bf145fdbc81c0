package repositories

import (
	"questlog/internal/database"
)

type Repository struct {
	User UserRepository
	Game GameRepository
}

func New(db database.DB) Repository {
	return Repository{
		User: NewUserRepository(db),
		Game: NewGameRepository(db),
	}
}
