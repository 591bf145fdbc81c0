package userController

import (
	"context"
	"time"

	"questlog/config"
	"questlog/internal/database"
	. "questlog/internal/models"
	"questlog/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
)

type UserController struct {
	userRepo repositories.UserRepository
	db       database.DB
	config   config.Config
	log      logger.Logger
}

type UserControllerInterface interface {
	GetProfile(ctx context.Context, user *User) (*UserProfile, error)
	RecordLogin(ctx context.Context, user *User) error
}

func New(
	repos repositories.Repository,
	config config.Config,
	db database.DB,
) UserControllerInterface {
	return &UserController{
		userRepo: repos.User,
		db:       db,
		config:   config,
		log:      logger.New("userController"),
	}
}

func (c *UserController) GetProfile(ctx context.Context, user *User) (*UserProfile, error) {
	profile := user.ToProfile()
	return &profile, nil
}

// RecordLogin stamps the user's last login time. Failures are logged but not
// surfaced; the timestamp is informational.
func (c *UserController) RecordLogin(ctx context.Context, user *User) error {
	log := c.log.TraceFromContext(ctx).Function("RecordLogin")

	now := time.Now().UTC()
	user.LastLoginAt = &now

	if err := c.userRepo.Update(ctx, c.db.SQL, user); err != nil {
		return log.Err("failed to record login", err, "userID", user.ID)
	}

	return nil
}
