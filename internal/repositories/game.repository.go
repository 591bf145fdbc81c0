package repositories

import (
	"context"
	"errors"
	"time"

	"questlog/internal/database"
	. "questlog/internal/models"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GAME_LIBRARY_CACHE_PREFIX = "game_library"
	GAME_LIBRARY_CACHE_EXPIRY = 24 * time.Hour

	// Most relevant game first: the current game, then the rest by how
	// recently they were current, newest record breaking ties.
	libraryOrder = "is_current DESC, last_now_playing_at DESC NULLS LAST, id DESC"
	recencyOrder = "last_now_playing_at DESC NULLS LAST, id DESC"
)

type GameRepository interface {
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*Game, error)
	GetByID(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, id int) (*Game, error)
	GetCurrent(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) (*Game, error)
	GetMostRecent(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) (*Game, error)
	Create(ctx context.Context, tx *gorm.DB, game *Game) error
	Save(ctx context.Context, tx *gorm.DB, game *Game) error
	Delete(ctx context.Context, tx *gorm.DB, game *Game) error
	UnsetAllCurrent(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) error
	FindOwnersWithMultipleCurrent(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
	ClearOwnerCache(ctx context.Context, ownerID uuid.UUID)
}

type gameRepository struct {
	cache database.CacheClient
	log   logger.Logger
}

func NewGameRepository(db database.DB) GameRepository {
	return &gameRepository{
		cache: db.Cache.User,
		log:   logger.New("gameRepository"),
	}
}

func (r *gameRepository) ListByOwner(
	ctx context.Context,
	tx *gorm.DB,
	ownerID uuid.UUID,
) ([]*Game, error) {
	log := r.log.TraceFromContext(ctx).Function("ListByOwner")

	var cached []*Game
	found, err := database.NewCacheBuilder(r.cache, ownerID).
		WithContext(ctx).
		WithHash(GAME_LIBRARY_CACHE_PREFIX).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get game library from cache", "ownerID", ownerID, "error", err)
	}

	if found {
		return cached, nil
	}

	var games []*Game
	if err := tx.WithContext(ctx).
		Where(&Game{OwnerID: ownerID}).
		Order(libraryOrder).
		Find(&games).Error; err != nil {
		return nil, log.Err("failed to list games", err, "ownerID", ownerID)
	}

	err = database.NewCacheBuilder(r.cache, ownerID).
		WithContext(ctx).
		WithHash(GAME_LIBRARY_CACHE_PREFIX).
		WithStruct(games).
		WithTTL(GAME_LIBRARY_CACHE_EXPIRY).
		Set()
	if err != nil {
		log.Warn("failed to cache game library", "ownerID", ownerID, "error", err)
	}

	return games, nil
}

func (r *gameRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	ownerID uuid.UUID,
	id int,
) (*Game, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	var game Game
	if err := tx.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get game", err, "ownerID", ownerID, "gameID", id)
	}

	return &game, nil
}

// GetCurrent returns the owner's game flagged as now playing, or nil when no
// game carries the flag.
func (r *gameRepository) GetCurrent(
	ctx context.Context,
	tx *gorm.DB,
	ownerID uuid.UUID,
) (*Game, error) {
	log := r.log.TraceFromContext(ctx).Function("GetCurrent")

	var game Game
	if err := tx.WithContext(ctx).
		Where("owner_id = ? AND is_current = ?", ownerID, true).
		First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, log.Err("failed to get current game", err, "ownerID", ownerID)
	}

	return &game, nil
}

// GetMostRecent returns the owner's game with the most recent now-playing
// timestamp, highest id breaking ties. Nil when the owner has no games.
func (r *gameRepository) GetMostRecent(
	ctx context.Context,
	tx *gorm.DB,
	ownerID uuid.UUID,
) (*Game, error) {
	log := r.log.TraceFromContext(ctx).Function("GetMostRecent")

	var game Game
	if err := tx.WithContext(ctx).
		Where(&Game{OwnerID: ownerID}).
		Order(recencyOrder).
		First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, log.Err("failed to get most recent game", err, "ownerID", ownerID)
	}

	return &game, nil
}

func (r *gameRepository) Create(ctx context.Context, tx *gorm.DB, game *Game) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := tx.WithContext(ctx).Create(game).Error; err != nil {
		return log.Err("failed to create game", err, "ownerID", game.OwnerID, "title", game.Title)
	}

	r.ClearOwnerCache(ctx, game.OwnerID)

	return nil
}

func (r *gameRepository) Save(ctx context.Context, tx *gorm.DB, game *Game) error {
	log := r.log.TraceFromContext(ctx).Function("Save")

	if err := tx.WithContext(ctx).Save(game).Error; err != nil {
		return log.Err("failed to save game", err, "ownerID", game.OwnerID, "gameID", game.ID)
	}

	r.ClearOwnerCache(ctx, game.OwnerID)

	return nil
}

func (r *gameRepository) Delete(ctx context.Context, tx *gorm.DB, game *Game) error {
	log := r.log.TraceFromContext(ctx).Function("Delete")

	if err := tx.WithContext(ctx).Delete(game).Error; err != nil {
		return log.Err("failed to delete game", err, "ownerID", game.OwnerID, "gameID", game.ID)
	}

	r.ClearOwnerCache(ctx, game.OwnerID)

	return nil
}

// UnsetAllCurrent clears the now-playing flag on every current game for the
// owner, refreshing updated_at on the rows it touches.
func (r *gameRepository) UnsetAllCurrent(
	ctx context.Context,
	tx *gorm.DB,
	ownerID uuid.UUID,
) error {
	log := r.log.TraceFromContext(ctx).Function("UnsetAllCurrent")

	if err := tx.WithContext(ctx).
		Model(&Game{}).
		Where("owner_id = ? AND is_current = ?", ownerID, true).
		Updates(map[string]any{
			"is_current": false,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return log.Err("failed to unset current games", err, "ownerID", ownerID)
	}

	r.ClearOwnerCache(ctx, ownerID)

	return nil
}

// FindOwnersWithMultipleCurrent reports owners whose library violates the
// single now-playing rule. Used by the nightly audit job.
func (r *gameRepository) FindOwnersWithMultipleCurrent(
	ctx context.Context,
	tx *gorm.DB,
) ([]uuid.UUID, error) {
	log := r.log.TraceFromContext(ctx).Function("FindOwnersWithMultipleCurrent")

	var owners []uuid.UUID
	err := tx.WithContext(ctx).
		Model(&Game{}).
		Select("owner_id").
		Where("is_current = ?", true).
		Group("owner_id").
		Having("COUNT(*) > 1").
		Scan(&owners).Error
	if err != nil {
		return nil, log.Err("failed to find owners with multiple current games", err)
	}

	return owners, nil
}

func (r *gameRepository) ClearOwnerCache(ctx context.Context, ownerID uuid.UUID) {
	if err := database.NewCacheBuilder(r.cache, ownerID).
		WithContext(ctx).
		WithHash(GAME_LIBRARY_CACHE_PREFIX).
		Delete(); err != nil {
		r.log.Function("ClearOwnerCache").
			Warn("failed to clear game library cache", "ownerID", ownerID, "error", err)
	}
}
