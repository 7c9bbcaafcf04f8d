package handlers

import (
	"strconv"

	"account-settlement-system/middleware"
	"account-settlement-system/models"
	"account-settlement-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(
	app *fiber.App,
	authService *services.AuthService,
	userService *services.UserService,
) {
	secured := app.Group("/api", middleware.UserContextMiddleware(authService))
	adminOnly := middleware.RequireAdmin()

	secured.Post("/users", adminOnly, func(c *fiber.Ctx) error {
		var req struct {
			Username string `json:"username"`
			Nickname string `json:"nickname"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		user, err := userService.CreateUser(req.Username, req.Nickname, req.Password, models.UserRole(req.Role))
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	secured.Get("/users", adminOnly, func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		users, err := userService.SearchUsers(c.Query("q"), limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(users)
	})

	secured.Put("/users/:id/referral", adminOnly, func(c *fiber.Ctx) error {
		userID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
		}
		var req struct {
			InviterLevel1 *int64 `json:"inviter_level1"`
			InviterLevel2 *int64 `json:"inviter_level2"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		ref, err := userService.SetReferral(userID, req.InviterLevel1, req.InviterLevel2)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(ref)
	})
}
