package middleware

import (
	"questlog/config"
	"questlog/internal/database"
	"questlog/internal/repositories"
	"questlog/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

type Middleware struct {
	DB       database.DB
	userRepo repositories.UserRepository
	supabase *services.SupabaseService
	Config   config.Config
	log      logger.Logger
}

func New(
	db database.DB,
	config config.Config,
	repos repositories.Repository,
	supabase *services.SupabaseService,
) Middleware {
	log := logger.New("middleware")

	return Middleware{
		DB:       db,
		userRepo: repos.User,
		supabase: supabase,
		Config:   config,
		log:      log,
	}
}
