package handlers

import (
	"errors"
	"strconv"

	"questlog/internal/app"
	gameController "questlog/internal/controllers/games"
	"questlog/internal/handlers/middleware"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/gofiber/fiber/v2"
)

type GameHandler struct {
	Handler
	gameController gameController.GameControllerInterface
}

func NewGameHandler(app app.App, router fiber.Router) *GameHandler {
	log := logger.New("handlers").File("game_handler")
	return &GameHandler{
		gameController: app.Controllers.Game,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *GameHandler) Register() {
	games := h.router.Group("/games", h.middleware.RequireAuth())

	games.Get("", h.listGames)
	games.Get("/current", h.getCurrentGame)
	games.Post("", h.createGame)
	games.Patch("/:id", h.updateGame)
	games.Delete("/:id", h.deleteGame)
}

func (h *GameHandler) listGames(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listGames")

	user := middleware.GetUser(c)
	if user == nil {
		log.Warn("Unauthorized access attempt")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	games, err := h.gameController.List(c.UserContext(), user)
	if err != nil {
		_ = log.Err("Failed to list games", err, "userID", user.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list games",
		})
	}

	return c.JSON(games)
}

func (h *GameHandler) getCurrentGame(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("getCurrentGame")

	user := middleware.GetUser(c)
	if user == nil {
		log.Warn("Unauthorized access attempt")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	game, err := h.gameController.GetCurrent(c.UserContext(), user)
	if err != nil {
		if errors.Is(err, gameController.ErrGameNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No games found for this user",
			})
		}
		_ = log.Err("Failed to get current game", err, "userID", user.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get current game",
		})
	}

	return c.JSON(game)
}

func (h *GameHandler) createGame(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("createGame")

	user := middleware.GetUser(c)
	if user == nil {
		log.Warn("Unauthorized access attempt")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req gameController.CreateGameRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	game, err := h.gameController.Create(c.UserContext(), user, &req)
	if err != nil {
		if errors.Is(err, gameController.ErrInvalidArgument) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		_ = log.Err("Failed to create game", err, "userID", user.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create game",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(game)
}

func (h *GameHandler) updateGame(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("updateGame")

	user := middleware.GetUser(c)
	if user == nil {
		log.Warn("Unauthorized access attempt")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	gameID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		log.Warn("Invalid game ID", "id", c.Params("id"))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid game ID",
		})
	}

	var req gameController.UpdateGameRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Invalid request body", "error", err, "gameID", gameID)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	game, err := h.gameController.Update(c.UserContext(), user, gameID, &req)
	if err != nil {
		if errors.Is(err, gameController.ErrGameNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Game not found",
			})
		}
		if errors.Is(err, gameController.ErrInvalidArgument) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		_ = log.Err("Failed to update game", err, "gameID", gameID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update game",
		})
	}

	return c.JSON(game)
}

func (h *GameHandler) deleteGame(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("deleteGame")

	user := middleware.GetUser(c)
	if user == nil {
		log.Warn("Unauthorized access attempt")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	gameID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		log.Warn("Invalid game ID", "id", c.Params("id"))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid game ID",
		})
	}

	deletedID, err := h.gameController.Delete(c.UserContext(), user, gameID)
	if err != nil {
		if errors.Is(err, gameController.ErrGameNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Game not found",
			})
		}
		_ = log.Err("Failed to delete game", err, "gameID", gameID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete game",
		})
	}

	return c.JSON(fiber.Map{
		"deleted": deletedID,
	})
}
