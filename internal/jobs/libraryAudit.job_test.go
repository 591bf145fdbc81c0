package jobs

import (
	"context"
	"testing"
	"time"

	"questlog/internal/database"
	"questlog/internal/models"
	"questlog/internal/repositories"
	"questlog/internal/services"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAuditTest(t *testing.T) (*LibraryAuditJob, *gorm.DB) {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gormDB.AutoMigrate(&models.Game{}))

	db := database.DB{SQL: gormDB}
	job := NewLibraryAuditJob(
		repositories.NewGameRepository(db),
		services.NewTransactionService(db),
		services.Daily,
	)
	return job, gormDB
}

func seedAuditGame(
	t *testing.T,
	db *gorm.DB,
	ownerID uuid.UUID,
	title string,
	isCurrent bool,
	lastPlayed *time.Time,
) *models.Game {
	t.Helper()

	game := &models.Game{
		OwnerID:          ownerID,
		Title:            title,
		Platform:         "PC",
		Status:           models.StatusBacklog,
		HoursPlayed:      decimal.Zero,
		EstimatedHours:   models.DefaultEstimatedHours,
		IsCurrent:        isCurrent,
		LastNowPlayingAt: lastPlayed,
	}
	if isCurrent {
		game.Status = models.StatusPlaying
	}
	require.NoError(t, db.Create(game).Error)
	return game
}

func TestLibraryAuditJob_RepairsDoubleCurrent(t *testing.T) {
	job, db := setupAuditTest(t)
	ownerID := uuid.New()

	earlier := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	later := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)

	// both flagged current, which the write path never produces
	seedAuditGame(t, db, ownerID, "Hades", true, &earlier)
	keeper := seedAuditGame(t, db, ownerID, "Elden Ring", true, &later)

	require.NoError(t, job.Execute(context.Background()))

	var current []models.Game
	require.NoError(t, db.
		Where("owner_id = ? AND is_current = ?", ownerID, true).
		Find(&current).Error)

	require.Len(t, current, 1)
	assert.Equal(t, keeper.ID, current[0].ID)
}

func TestLibraryAuditJob_LeavesHealthyOwnersAlone(t *testing.T) {
	job, db := setupAuditTest(t)
	healthyOwner := uuid.New()
	brokenOwner := uuid.New()

	at := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)

	healthy := seedAuditGame(t, db, healthyOwner, "Celeste", true, &at)
	healthyUpdatedAt := healthy.UpdatedAt

	seedAuditGame(t, db, brokenOwner, "Hades", true, &at)
	seedAuditGame(t, db, brokenOwner, "Elden Ring", true, &at)

	require.NoError(t, job.Execute(context.Background()))

	var unchanged models.Game
	require.NoError(t, db.First(&unchanged, healthy.ID).Error)
	assert.True(t, unchanged.IsCurrent)
	assert.Equal(t, healthyUpdatedAt.Unix(), unchanged.UpdatedAt.Unix())

	var count int64
	require.NoError(t, db.Model(&models.Game{}).
		Where("owner_id = ? AND is_current = ?", brokenOwner, true).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLibraryAuditJob_NoViolations(t *testing.T) {
	job, db := setupAuditTest(t)
	ownerID := uuid.New()

	seedAuditGame(t, db, ownerID, "Celeste", false, nil)

	require.NoError(t, job.Execute(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.Game{}).
		Where("is_current = ?", true).
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestLibraryAuditJob_Identity(t *testing.T) {
	job, _ := setupAuditTest(t)

	assert.Equal(t, "NightlyLibraryAudit", job.Name())
	assert.Equal(t, services.Daily, job.Schedule())
}
