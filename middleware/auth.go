package middleware

import (
	"log"
	"strings"

	"account-settlement-system/models"
	"account-settlement-system/services"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware validates the Bearer token and attaches the caller's
// identity to the request context. Everything under a secured group goes
// through here.
func UserContextMiddleware(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing Authorization header",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseToken(token)
		if err != nil {
			log.Printf("[AUTH] Rejected token for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		return c.Next()
	}
}

// RequireAdmin gates admin-only routes; must run after UserContextMiddleware
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(models.UserRole)
		if role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin privileges required",
			})
		}
		return c.Next()
	}
}

// UserID reads the authenticated user's ID set by UserContextMiddleware
func UserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("user_id").(int64)
	return id
}
