package gameController_test

import (
	"context"
	"testing"
	"time"

	"questlog/config"
	gameController "questlog/internal/controllers/games"
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

func setupTest(t *testing.T) (gameController.GameControllerInterface, database.DB) {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gormDB.AutoMigrate(&models.Game{}))

	db := database.DB{SQL: gormDB}
	repos := repositories.New(db)
	svc := services.Service{Transaction: services.NewTransactionService(db)}

	controller := gameController.New(repos, svc, nil, config.Config{}, db)
	return controller, db
}

func testUser() *models.User {
	return &models.User{
		BaseUUIDModel: models.BaseUUIDModel{ID: uuid.New()},
	}
}

func dec(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestGameController_Create_Defaults(t *testing.T) {
	controller, _ := setupTest(t)
	user := testUser()
	ctx := context.Background()

	game, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	assert.Equal(t, "Elden Ring", game.Title)
	assert.Equal(t, models.StatusBacklog, game.Status)
	assert.True(t, game.HoursPlayed.IsZero())
	assert.True(t, game.EstimatedHours.Equal(models.DefaultEstimatedHours))
	assert.Equal(t, 0, game.CompletionPercent)
	assert.False(t, game.IsCurrent)
	assert.Nil(t, game.LastNowPlayingAt)
	assert.Equal(t, user.ID, game.OwnerID)
	assert.NotZero(t, game.ID)
}

func TestGameController_Create_Validation(t *testing.T) {
	controller, _ := setupTest(t)
	user := testUser()
	ctx := context.Background()

	_, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Platform: "PC",
	})
	assert.ErrorIs(t, err, gameController.ErrInvalidArgument)

	_, err = controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title: "Hades",
	})
	assert.ErrorIs(t, err, gameController.ErrInvalidArgument)

	_, err = controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:          "Hades",
		Platform:       "PC",
		EstimatedHours: dec("0"),
	})
	assert.ErrorIs(t, err, gameController.ErrInvalidArgument)
}

func TestGameController_Update_AddHours(t *testing.T) {
	controller, _ := setupTest(t)
	user := testUser()
	ctx := context.Background()

	game, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	updated, err := controller.Update(ctx, user, game.ID, &gameController.UpdateGameRequest{
		AddHours: dec("20"),
	})
	require.NoError(t, err)

	assert.True(t, updated.HoursPlayed.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 50, updated.CompletionPercent)

	// increments accumulate
	updated, err = controller.Update(ctx, user, game.ID, &gameController.UpdateGameRequest{
		AddHours: dec("10"),
	})
	require.NoError(t, err)

	assert.True(t, updated.HoursPlayed.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 75, updated.CompletionPercent)
}

func TestGameController_Update_InvalidHours(t *testing.T) {
	controller, _ := setupTest(t)
	user := testUser()
	ctx := context.Background()

	game, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	for name, req := range map[string]*gameController.UpdateGameRequest{
		"negative hoursPlayed": {HoursPlayed: dec("-5")},
		"negative addHours":    {AddHours: dec("-1")},
		"zero estimatedHours":  {EstimatedHours: dec("0")},
		"negative estimate":    {EstimatedHours: dec("-10")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := controller.Update(ctx, user, game.ID, req)
			assert.ErrorIs(t, err, gameController.ErrInvalidArgument)
		})
	}

	// failed updates leave the record untouched
	unchanged, err := controller.Update(ctx, user, game.ID, &gameController.UpdateGameRequest{})
	require.NoError(t, err)
	assert.True(t, unchanged.HoursPlayed.IsZero())
	assert.Equal(t, 0, unchanged.CompletionPercent)
}

func TestGameController_Update_NotFound(t *testing.T) {
	controller, _ := setupTest(t)
	user := testUser()

	_, err := controller.Update(context.Background(), user, 9999, &gameController.UpdateGameRequest{
		Title: strptr("nope"),
	})
	assert.ErrorIs(t, err, gameController.ErrGameNotFound)
}

func TestGameController_Promote_SingleCurrent(t *testing.T) {
	controller, db := setupTest(t)
	user := testUser()
	ctx := context.Background()

	first, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	second, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Hades",
		Platform: "PC",
	})
	require.NoError(t, err)

	promoted, err := controller.Update(ctx, user, first.ID, &gameController.UpdateGameRequest{
		IsCurrent: boolptr(true),
	})
	require.NoError(t, err)
	assert.True(t, promoted.IsCurrent)
	assert.Equal(t, models.StatusPlaying, promoted.Status)
	assert.NotNil(t, promoted.LastNowPlayingAt)

	time.Sleep(5 * time.Millisecond)

	promoted, err = controller.Update(ctx, user, second.ID, &gameController.UpdateGameRequest{
		IsCurrent: boolptr(true),
	})
	require.NoError(t, err)
	assert.True(t, promoted.IsCurrent)

	assertSingleCurrent(t, db, user.ID, second.ID)

	var demoted models.Game
	require.NoError(t, db.SQL.First(&demoted, first.ID).Error)
	assert.False(t, demoted.IsCurrent)
}

func TestGameController_Delete_ReassignsCurrent(t *testing.T) {
	controller, db := setupTest(t)
	user := testUser()
	ctx := context.Background()

	first, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	second, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Hades",
		Platform: "PC",
	})
	require.NoError(t, err)

	_, err = controller.Update(ctx, user, first.ID, &gameController.UpdateGameRequest{
		IsCurrent: boolptr(true),
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = controller.Update(ctx, user, second.ID, &gameController.UpdateGameRequest{
		IsCurrent: boolptr(true),
	})
	require.NoError(t, err)

	deletedID, err := controller.Delete(ctx, user, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, deletedID)

	// the previously played game takes the flag back
	assertSingleCurrent(t, db, user.ID, first.ID)
}

func TestGameController_Delete_ReassignsByHighestID(t *testing.T) {
	controller, db := setupTest(t)
	user := testUser()
	ctx := context.Background()

	// neither remaining game was ever current, so the tie breaks on id
	older, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Celeste",
		Platform: "Switch",
	})
	require.NoError(t, err)

	newer, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Hollow Knight",
		Platform: "Switch",
	})
	require.NoError(t, err)

	current, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	_, err = controller.Update(ctx, user, current.ID, &gameController.UpdateGameRequest{
		IsCurrent: boolptr(true),
	})
	require.NoError(t, err)

	_, err = controller.Delete(ctx, user, current.ID)
	require.NoError(t, err)

	assert.Greater(t, newer.ID, older.ID)
	assertSingleCurrent(t, db, user.ID, newer.ID)
}

func TestGameController_Delete_LastGameLeavesNoCurrent(t *testing.T) {
	controller, db := setupTest(t)
	user := testUser()
	ctx := context.Background()

	game, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	_, err = controller.Update(ctx, user, game.ID, &gameController.UpdateGameRequest{
		IsCurrent: boolptr(true),
	})
	require.NoError(t, err)

	_, err = controller.Delete(ctx, user, game.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.SQL.Model(&models.Game{}).
		Where("owner_id = ?", user.ID).
		Count(&count).Error)
	assert.Zero(t, count)

	_, err = controller.GetCurrent(ctx, user)
	assert.ErrorIs(t, err, gameController.ErrGameNotFound)
}

func TestGameController_GetCurrent_FallbackToRecentlyPlayed(t *testing.T) {
	controller, db := setupTest(t)
	user := testUser()
	ctx := context.Background()

	_, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Celeste",
		Platform: "Switch",
	})
	require.NoError(t, err)

	played, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	_, err = controller.Update(ctx, user, played.ID, &gameController.UpdateGameRequest{
		IsCurrent: boolptr(true),
	})
	require.NoError(t, err)

	// strip the flag directly, leaving only the recency trail
	require.NoError(t, db.SQL.Model(&models.Game{}).
		Where("owner_id = ?", user.ID).
		Update("is_current", false).Error)

	current, err := controller.GetCurrent(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, played.ID, current.ID)
}

func TestGameController_OwnershipIsolation(t *testing.T) {
	controller, _ := setupTest(t)
	owner := testUser()
	other := testUser()
	ctx := context.Background()

	game, err := controller.Create(ctx, owner, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	_, err = controller.Update(ctx, other, game.ID, &gameController.UpdateGameRequest{
		Title: strptr("hijacked"),
	})
	assert.ErrorIs(t, err, gameController.ErrGameNotFound)

	_, err = controller.Delete(ctx, other, game.ID)
	assert.ErrorIs(t, err, gameController.ErrGameNotFound)

	_, err = controller.GetCurrent(ctx, other)
	assert.ErrorIs(t, err, gameController.ErrGameNotFound)

	games, err := controller.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, games)

	unchanged, err := controller.Update(ctx, owner, game.ID, &gameController.UpdateGameRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Elden Ring", unchanged.Title)
}

func TestGameController_Update_RecalcIdempotent(t *testing.T) {
	controller, _ := setupTest(t)
	user := testUser()
	ctx := context.Background()

	game, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	withHours, err := controller.Update(ctx, user, game.ID, &gameController.UpdateGameRequest{
		AddHours: dec("20"),
	})
	require.NoError(t, err)
	require.Equal(t, 50, withHours.CompletionPercent)

	time.Sleep(5 * time.Millisecond)

	renamed, err := controller.Update(ctx, user, game.ID, &gameController.UpdateGameRequest{
		Title: strptr("Elden Ring: Shadow of the Erdtree"),
	})
	require.NoError(t, err)

	assert.Equal(t, 50, renamed.CompletionPercent)
	assert.True(t, renamed.HoursPlayed.Equal(decimal.NewFromInt(20)))
	assert.True(t, renamed.UpdatedAt.After(withHours.UpdatedAt))
}

func TestGameController_List_Ordering(t *testing.T) {
	controller, _ := setupTest(t)
	user := testUser()
	ctx := context.Background()

	backlog, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Celeste",
		Platform: "Switch",
	})
	require.NoError(t, err)

	older, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Hades",
		Platform: "PC",
	})
	require.NoError(t, err)

	current, err := controller.Create(ctx, user, &gameController.CreateGameRequest{
		Title:    "Elden Ring",
		Platform: "PS5",
	})
	require.NoError(t, err)

	_, err = controller.Update(ctx, user, older.ID, &gameController.UpdateGameRequest{
		IsCurrent: boolptr(true),
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = controller.Update(ctx, user, current.ID, &gameController.UpdateGameRequest{
		IsCurrent: boolptr(true),
	})
	require.NoError(t, err)

	games, err := controller.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, games, 3)

	// current first, then by how recently each was current, never-played last
	assert.Equal(t, current.ID, games[0].ID)
	assert.Equal(t, older.ID, games[1].ID)
	assert.Equal(t, backlog.ID, games[2].ID)
}

func assertSingleCurrent(t *testing.T, db database.DB, ownerID uuid.UUID, expectedGameID int) {
	t.Helper()

	var current []models.Game
	require.NoError(t, db.SQL.
		Where("owner_id = ? AND is_current = ?", ownerID, true).
		Find(&current).Error)

	require.Len(t, current, 1, "expected exactly one current game")
	assert.Equal(t, expectedGameID, current[0].ID)
	assert.Equal(t, models.StatusPlaying, current[0].Status)
}
