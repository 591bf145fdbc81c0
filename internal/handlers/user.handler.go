package handlers

import (
	"questlog/internal/app"
	userController "questlog/internal/controllers/users"
	"questlog/internal/handlers/middleware"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	Handler
	userController userController.UserControllerInterface
}

func NewUserHandler(app app.App, router fiber.Router) *UserHandler {
	log := logger.New("handlers").File("user_handler")
	return &UserHandler{
		userController: app.Controllers.User,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *UserHandler) Register() {
	users := h.router.Group("/users", h.middleware.RequireAuth())

	users.Get("/me", h.getProfile)
}

func (h *UserHandler) getProfile(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("getProfile")

	user := middleware.GetUser(c)
	if user == nil {
		log.Warn("Unauthorized access attempt")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	profile, err := h.userController.GetProfile(c.UserContext(), user)
	if err != nil {
		_ = log.Err("Failed to get profile", err, "userID", user.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get profile",
		})
	}

	if err := h.userController.RecordLogin(c.UserContext(), user); err != nil {
		log.Warn("failed to record login", "userID", user.ID, "error", err)
	}

	return c.JSON(fiber.Map{
		"user": profile,
	})
}
