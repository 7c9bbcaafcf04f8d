package handlers

import (
	"strconv"

	"account-settlement-system/middleware"
	"account-settlement-system/models"
	"account-settlement-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWalletRoutes(
	app *fiber.App,
	authService *services.AuthService,
	walletService *services.WalletService,
	withdrawalService *services.WithdrawalService,
) {
	secured := app.Group("/api", middleware.UserContextMiddleware(authService))
	adminOnly := middleware.RequireAdmin()

	secured.Get("/wallet", func(c *fiber.Ctx) error {
		wallet, err := walletService.GetOrCreateWallet(middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(wallet)
	})

	secured.Get("/wallet/summary", func(c *fiber.Ctx) error {
		summary, err := walletService.Summary(middleware.UserID(c), queryInt64(c, "period_id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(summary)
	})

	secured.Get("/wallet/ledger", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "100"))
		entries, err := walletService.Ledger(middleware.UserID(c), queryInt64(c, "period_id"), limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(entries)
	})

	secured.Post("/withdraw-requests", func(c *fiber.Ctx) error {
		var req struct {
			AmountCoins int64  `json:"amount_coins"`
			Method      string `json:"method"`
			AccountInfo string `json:"account_info"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		withdraw, err := withdrawalService.Apply(middleware.UserID(c), req.AmountCoins, req.Method, req.AccountInfo)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(withdraw)
	})

	secured.Get("/withdraw-requests/my", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		reqs, err := withdrawalService.ListForUser(middleware.UserID(c), limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(reqs)
	})

	secured.Post("/withdraw-requests/:id/cancel", func(c *fiber.Ctx) error {
		withdrawID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid withdraw id"})
		}
		withdraw, err := withdrawalService.Cancel(withdrawID, middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(withdraw)
	})

	// --- Admin review ---

	secured.Get("/withdraw-requests", adminOnly, func(c *fiber.Ctx) error {
		var status *models.WithdrawStatus
		if raw := c.Query("status"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status filter"})
			}
			st := models.WithdrawStatus(v)
			status = &st
		}
		limit, _ := strconv.Atoi(c.Query("limit", "100"))
		reqs, err := withdrawalService.ListAll(status, queryInt64(c, "user_id"), limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(reqs)
	})

	secured.Post("/withdraw-requests/:id/approve", adminOnly, func(c *fiber.Ctx) error {
		withdrawID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid withdraw id"})
		}
		withdraw, err := withdrawalService.Approve(withdrawID, middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(withdraw)
	})

	secured.Post("/withdraw-requests/:id/pay", adminOnly, func(c *fiber.Ctx) error {
		withdrawID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid withdraw id"})
		}
		withdraw, err := withdrawalService.MarkPaid(withdrawID, middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(withdraw)
	})

	secured.Post("/withdraw-requests/:id/reject", adminOnly, func(c *fiber.Ctx) error {
		withdrawID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid withdraw id"})
		}
		var req struct {
			RejectReason string `json:"reject_reason"`
		}
		if err := c.BodyParser(&req); err != nil || req.RejectReason == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reject_reason is required"})
		}
		withdraw, err := withdrawalService.Reject(withdrawID, middleware.UserID(c), req.RejectReason)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(withdraw)
	})
}
