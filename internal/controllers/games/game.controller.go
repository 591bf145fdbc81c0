package gameController

import (
	"context"
	"errors"
	"fmt"
	"time"

	"questlog/config"
	"questlog/internal/database"
	"questlog/internal/events"
	. "questlog/internal/models"
	"questlog/internal/repositories"
	"questlog/internal/services"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrGameNotFound covers both an absent record and a record owned by a
	// different user; callers cannot tell the two apart.
	ErrGameNotFound = errors.New("game not found")

	// ErrInvalidArgument wraps every request validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
)

func invalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

type GameController struct {
	gameRepo           repositories.GameRepository
	transactionService *services.TransactionService
	eventBus           *events.EventBus
	db                 database.DB
	config             config.Config
	log                logger.Logger
}

type CreateGameRequest struct {
	Title          string           `json:"title"`
	Platform       string           `json:"platform"`
	Status         *string          `json:"status,omitempty"`
	CoverArtURL    *string          `json:"coverArtUrl,omitempty"`
	EstimatedHours *decimal.Decimal `json:"estimatedHours,omitempty"`
}

type UpdateGameRequest struct {
	// progress controls
	AddHours       *decimal.Decimal `json:"addHours,omitempty"`
	HoursPlayed    *decimal.Decimal `json:"hoursPlayed,omitempty"`
	EstimatedHours *decimal.Decimal `json:"estimatedHours,omitempty"`

	// state controls
	IsCurrent *bool   `json:"isCurrent,omitempty"`
	Status    *string `json:"status,omitempty"`

	// optional metadata edits
	Title       *string `json:"title,omitempty"`
	Platform    *string `json:"platform,omitempty"`
	CoverArtURL *string `json:"coverArtUrl,omitempty"`
}

type GameControllerInterface interface {
	List(ctx context.Context, user *User) ([]*Game, error)
	GetCurrent(ctx context.Context, user *User) (*Game, error)
	Create(ctx context.Context, user *User, request *CreateGameRequest) (*Game, error)
	Update(ctx context.Context, user *User, gameID int, request *UpdateGameRequest) (*Game, error)
	Delete(ctx context.Context, user *User, gameID int) (int, error)
}

func New(
	repos repositories.Repository,
	services services.Service,
	eventBus *events.EventBus,
	config config.Config,
	db database.DB,
) GameControllerInterface {
	return &GameController{
		gameRepo:           repos.Game,
		transactionService: services.Transaction,
		eventBus:           eventBus,
		db:                 db,
		config:             config,
		log:                logger.New("gameController"),
	}
}

func (c *GameController) List(ctx context.Context, user *User) ([]*Game, error) {
	log := c.log.TraceFromContext(ctx).Function("List")

	games, err := c.gameRepo.ListByOwner(ctx, c.db.SQL, user.ID)
	if err != nil {
		return nil, log.Err("failed to list games", err, "userID", user.ID)
	}

	return games, nil
}

// GetCurrent returns the now-playing game, falling back to the most recently
// played one when nothing carries the flag.
func (c *GameController) GetCurrent(ctx context.Context, user *User) (*Game, error) {
	log := c.log.TraceFromContext(ctx).Function("GetCurrent")

	game, err := c.gameRepo.GetCurrent(ctx, c.db.SQL, user.ID)
	if err != nil {
		return nil, log.Err("failed to get current game", err, "userID", user.ID)
	}

	if game == nil {
		game, err = c.gameRepo.GetMostRecent(ctx, c.db.SQL, user.ID)
		if err != nil {
			return nil, log.Err("failed to get fallback game", err, "userID", user.ID)
		}
	}

	if game == nil {
		return nil, ErrGameNotFound
	}

	return game, nil
}

func (c *GameController) Create(
	ctx context.Context,
	user *User,
	request *CreateGameRequest,
) (*Game, error) {
	log := c.log.TraceFromContext(ctx).Function("Create")

	if request.Title == "" {
		return nil, invalidArgument("title is required")
	}
	if request.Platform == "" {
		return nil, invalidArgument("platform is required")
	}

	game := &Game{
		OwnerID:        user.ID,
		Title:          request.Title,
		Platform:       request.Platform,
		Status:         StatusBacklog,
		CoverArtURL:    request.CoverArtURL,
		HoursPlayed:    decimal.Zero,
		EstimatedHours: DefaultEstimatedHours,
		IsCurrent:      false,
	}

	if request.Status != nil && *request.Status != "" {
		game.Status = *request.Status
	}

	if request.EstimatedHours != nil {
		if request.EstimatedHours.LessThanOrEqual(decimal.Zero) {
			return nil, invalidArgument("estimatedHours must be greater than zero")
		}
		game.EstimatedHours = *request.EstimatedHours
	}

	game.RecalcCompletion()

	if err := c.gameRepo.Create(ctx, c.db.SQL, game); err != nil {
		return nil, log.Err("failed to create game", err, "userID", user.ID)
	}

	c.publishEvent(events.GAME_CREATED, game.OwnerID, map[string]any{
		"gameId": game.ID,
		"title":  game.Title,
	})

	return game, nil
}

func (c *GameController) Update(
	ctx context.Context,
	user *User,
	gameID int,
	request *UpdateGameRequest,
) (*Game, error) {
	log := c.log.TraceFromContext(ctx).Function("Update")

	var updated *Game
	promoted := false

	err := c.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		game, err := c.gameRepo.GetByID(ctx, tx, user.ID, gameID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGameNotFound
			}
			return err
		}

		if err := applyUpdate(game, request); err != nil {
			return err
		}

		if request.IsCurrent != nil && *request.IsCurrent {
			if err := c.makeNowPlaying(ctx, tx, game); err != nil {
				return err
			}
			promoted = true
		}

		// Recalculation runs unconditionally so the derived percent always
		// reflects the row being written.
		game.RecalcCompletion()
		game.UpdatedAt = time.Now().UTC()

		if err := c.gameRepo.Save(ctx, tx, game); err != nil {
			return err
		}

		updated = game
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrGameNotFound) || errors.Is(err, ErrInvalidArgument) {
			return nil, err
		}
		return nil, log.Err("failed to update game", err, "userID", user.ID, "gameID", gameID)
	}

	c.publishEvent(events.GAME_UPDATED, updated.OwnerID, map[string]any{
		"gameId": updated.ID,
	})
	if promoted {
		c.publishEvent(events.NOW_PLAYING_CHANGED, updated.OwnerID, map[string]any{
			"gameId": updated.ID,
		})
	}

	return updated, nil
}

func (c *GameController) Delete(ctx context.Context, user *User, gameID int) (int, error) {
	log := c.log.TraceFromContext(ctx).Function("Delete")

	var replacement *Game

	err := c.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		game, err := c.gameRepo.GetByID(ctx, tx, user.ID, gameID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGameNotFound
			}
			return err
		}

		wasCurrent := game.IsCurrent

		if err := c.gameRepo.Delete(ctx, tx, game); err != nil {
			return err
		}

		if !wasCurrent {
			return nil
		}

		// Deleting the current game picks the most recently played remaining
		// game as the new current one, so the library never sits without a
		// now-playing entry while games remain.
		next, err := c.gameRepo.GetMostRecent(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		if err := c.makeNowPlaying(ctx, tx, next); err != nil {
			return err
		}
		if err := c.gameRepo.Save(ctx, tx, next); err != nil {
			return err
		}

		replacement = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			return 0, err
		}
		return 0, log.Err("failed to delete game", err, "userID", user.ID, "gameID", gameID)
	}

	c.publishEvent(events.GAME_DELETED, user.ID, map[string]any{
		"gameId": gameID,
	})
	if replacement != nil {
		c.publishEvent(events.NOW_PLAYING_CHANGED, user.ID, map[string]any{
			"gameId": replacement.ID,
		})
	}

	return gameID, nil
}

// makeNowPlaying enforces the single now-playing game per owner: every other
// current row is unset before the target takes the flag. Callers must pass a
// transaction so a failure partway through rolls everything back.
func (c *GameController) makeNowPlaying(ctx context.Context, tx *gorm.DB, game *Game) error {
	if err := c.gameRepo.UnsetAllCurrent(ctx, tx, game.OwnerID); err != nil {
		return err
	}

	game.MarkNowPlaying(time.Now().UTC())
	return nil
}

func applyUpdate(game *Game, request *UpdateGameRequest) error {
	// metadata edits
	if request.Title != nil {
		game.Title = *request.Title
	}
	if request.Platform != nil {
		game.Platform = *request.Platform
	}
	if request.CoverArtURL != nil {
		game.CoverArtURL = request.CoverArtURL
	}

	if request.Status != nil {
		game.Status = *request.Status
	}

	// hours changes
	if request.HoursPlayed != nil {
		if request.HoursPlayed.IsNegative() {
			return invalidArgument("hoursPlayed cannot be negative")
		}
		game.HoursPlayed = *request.HoursPlayed
	}

	if request.AddHours != nil {
		if request.AddHours.IsNegative() {
			return invalidArgument("addHours cannot be negative")
		}
		game.HoursPlayed = game.HoursPlayed.Add(*request.AddHours)
	}

	if request.EstimatedHours != nil {
		if request.EstimatedHours.LessThanOrEqual(decimal.Zero) {
			return invalidArgument("estimatedHours must be greater than zero")
		}
		game.EstimatedHours = *request.EstimatedHours
	}

	return nil
}

func (c *GameController) publishEvent(
	eventType events.MessageType,
	ownerID uuid.UUID,
	data map[string]any,
) {
	if c.eventBus == nil {
		return
	}

	event := events.Event{
		Type:    eventType,
		OwnerID: &ownerID,
		Data:    data,
	}

	if err := c.eventBus.Publish(events.GAME_CHANNEL, event); err != nil {
		c.log.Function("publishEvent").
			Warn("failed to publish event", "type", eventType, "error", err)
	}
}
