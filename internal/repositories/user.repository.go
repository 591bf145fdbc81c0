package repositories

import (
	"context"
	"errors"
	"time"

	"questlog/internal/database"
	. "questlog/internal/models"
	"questlog/internal/types"

	logger "github.com/Bparsons0904/goLogger"

	"gorm.io/gorm"
)

const (
	USER_CACHE_EXPIRY          = 7 * 24 * time.Hour
	SUPABASE_USER_CACHE_PREFIX = "supabase_user"
)

type UserRepository interface {
	GetBySupabaseID(ctx context.Context, tx *gorm.DB, supabaseUserID string) (*User, error)
	FindOrCreateBySupabaseID(
		ctx context.Context,
		tx *gorm.DB,
		tokenInfo *types.TokenInfo,
	) (*User, error)
	Update(ctx context.Context, tx *gorm.DB, user *User) error
}

type userRepository struct {
	cache database.CacheClient
	log   logger.Logger
}

func NewUserRepository(db database.DB) UserRepository {
	return &userRepository{
		cache: db.Cache.User,
		log:   logger.New("userRepository"),
	}
}

func (r *userRepository) GetBySupabaseID(
	ctx context.Context,
	tx *gorm.DB,
	supabaseUserID string,
) (*User, error) {
	log := r.log.TraceFromContext(ctx).Function("GetBySupabaseID")

	var cached User
	found, err := database.NewCacheBuilder(r.cache, supabaseUserID).
		WithContext(ctx).
		WithHash(SUPABASE_USER_CACHE_PREFIX).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get user from cache", "supabaseUserID", supabaseUserID, "error", err)
	}

	if found {
		return &cached, nil
	}

	var user User
	if err := tx.WithContext(ctx).
		Where("supabase_user_id = ?", supabaseUserID).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get user", err, "supabaseUserID", supabaseUserID)
	}

	r.addToCache(ctx, &user)

	return &user, nil
}

// FindOrCreateBySupabaseID resolves validated token claims to a local user,
// provisioning a row the first time the subject is seen.
func (r *userRepository) FindOrCreateBySupabaseID(
	ctx context.Context,
	tx *gorm.DB,
	tokenInfo *types.TokenInfo,
) (*User, error) {
	log := r.log.TraceFromContext(ctx).Function("FindOrCreateBySupabaseID")

	user, err := r.GetBySupabaseID(ctx, tx, tokenInfo.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	newUser := &User{
		SupabaseUserID: tokenInfo.UserID,
	}

	var email *string
	if tokenInfo.Email != "" {
		email = &tokenInfo.Email
	}
	newUser.UpdateFromToken(email, time.Now().UTC())

	if err := tx.WithContext(ctx).Create(newUser).Error; err != nil {
		return nil, log.Err(
			"failed to create user",
			err,
			"supabaseUserID", tokenInfo.UserID,
		)
	}

	log.Info("provisioned new user", "supabaseUserID", tokenInfo.UserID, "userID", newUser.ID)
	r.addToCache(ctx, newUser)

	return newUser, nil
}

func (r *userRepository) Update(ctx context.Context, tx *gorm.DB, user *User) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	if err := tx.WithContext(ctx).Save(user).Error; err != nil {
		return log.Err("failed to update user", err, "userID", user.ID)
	}

	r.clearCache(ctx, user)
	r.addToCache(ctx, user)

	return nil
}

func (r *userRepository) addToCache(ctx context.Context, user *User) {
	if err := database.NewCacheBuilder(r.cache, user.SupabaseUserID).
		WithContext(ctx).
		WithHash(SUPABASE_USER_CACHE_PREFIX).
		WithStruct(user).
		WithTTL(USER_CACHE_EXPIRY).
		Set(); err != nil {
		r.log.Function("addToCache").
			Warn("failed to add user to cache", "userID", user.ID, "error", err)
	}
}

func (r *userRepository) clearCache(ctx context.Context, user *User) {
	if err := database.NewCacheBuilder(r.cache, user.SupabaseUserID).
		WithContext(ctx).
		WithHash(SUPABASE_USER_CACHE_PREFIX).
		Delete(); err != nil {
		r.log.Function("clearCache").
			Warn("failed to clear user cache", "userID", user.ID, "error", err)
	}
}
