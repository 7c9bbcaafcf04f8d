package handlers

import (
	"errors"
	"strconv"
	"time"

	"account-settlement-system/middleware"
	"account-settlement-system/models"
	"account-settlement-system/services"
	"account-settlement-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SettlementMeResponse is the user-facing settlement center payload
type SettlementMeResponse struct {
	Period   *models.SettlementPeriod `json:"period"`
	Income   *models.UserIncome       `json:"income"`
	Payable  *models.UserPayable      `json:"payable"`
	Payments []models.Payment         `json:"payments"`
}

func SetupSettlementRoutes(
	app *fiber.App,
	authService *services.AuthService,
	settlementService *services.SettlementService,
	paymentService *services.PaymentService,
	unlockService *services.UnlockService,
) {
	secured := app.Group("/api", middleware.UserContextMiddleware(authService))
	adminOnly := middleware.RequireAdmin()

	// --- User routes ---

	secured.Get("/settlement/me", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var period *models.SettlementPeriod
		if pid := queryInt64(c, "period_id"); pid != nil {
			p, err := settlementService.GetPeriod(*pid)
			if err != nil {
				return fail(c, err)
			}
			period = p
		} else {
			p, err := settlementService.CurrentPeriod()
			if err != nil {
				if errors.Is(err, services.ErrNoCurrentPeriod) {
					return c.JSON(SettlementMeResponse{Payments: []models.Payment{}})
				}
				return fail(c, err)
			}
			period = p
		}

		resp := SettlementMeResponse{Period: period, Payments: []models.Payment{}}

		var income models.UserIncome
		if err := settlementService.DB.
			Where("period_id = ? AND user_id = ?", period.PeriodID, userID).
			First(&income).Error; err == nil {
			resp.Income = &income
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, err)
		}

		var payable models.UserPayable
		if err := settlementService.DB.
			Where("period_id = ? AND user_id = ?", period.PeriodID, userID).
			First(&payable).Error; err == nil {
			resp.Payable = &payable
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, err)
		}

		pid := period.PeriodID
		payments, err := paymentService.ListPayments(userID, &pid, nil)
		if err != nil {
			return fail(c, err)
		}
		resp.Payments = payments

		return c.JSON(resp)
	})

	secured.Get("/settlement-periods/current", func(c *fiber.Ctx) error {
		period, err := settlementService.CurrentPeriod()
		if err != nil {
			if errors.Is(err, services.ErrNoCurrentPeriod) {
				return c.JSON(nil)
			}
			return fail(c, err)
		}
		return c.JSON(period)
	})

	secured.Post("/settlement-payments", func(c *fiber.Ctx) error {
		var req struct {
			PeriodID    *int64 `json:"period_id"`
			AmountCoins int64  `json:"amount_coins"`
			Method      string `json:"method"`
			ProofURL    string `json:"proof_url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		payment, err := paymentService.SubmitPayment(middleware.UserID(c), &services.SubmitPaymentInput{
			PeriodID:    req.PeriodID,
			AmountCoins: req.AmountCoins,
			Method:      req.Method,
			ProofURL:    req.ProofURL,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(payment)
	})

	// Payment proof → R2; the returned URL goes into the submit body
	secured.Post("/settlement-payments/proof", func(c *fiber.Ctx) error {
		file, err := c.FormFile("proof")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "proof file is required"})
		}
		if file.Size > 10*1024*1024 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "proof too large (max 10MB)"})
		}

		url, err := utils.UploadProofToR2(file)
		if err != nil {
			if errors.Is(err, utils.ErrUnsupportedProofType) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload proof"})
		}
		return c.JSON(fiber.Map{"proof_url": url})
	})

	secured.Get("/settlement-payments/my", func(c *fiber.Ctx) error {
		payments, err := paymentService.ListPayments(middleware.UserID(c), queryInt64(c, "period_id"), nil)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(payments)
	})

	// --- Admin routes ---

	secured.Get("/settlement-periods", adminOnly, func(c *fiber.Ctx) error {
		periods, err := settlementService.ListPeriods()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(periods)
	})

	secured.Post("/settlement-periods", adminOnly, func(c *fiber.Ctx) error {
		var req struct {
			Name        string `json:"name"`
			PeriodStart string `json:"period_start"`
			PeriodEnd   string `json:"period_end"`
			PayStart    string `json:"pay_start"`
			PayEnd      string `json:"pay_end"`
			HostBps     int    `json:"host_bps"`
			CollectBps  int    `json:"collect_bps"`
			L1Bps       int    `json:"l1_bps"`
			L2Bps       int    `json:"l2_bps"`
			CoinRate    int64  `json:"coin_rate"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		in := services.PeriodInput{
			Name:       req.Name,
			HostBps:    req.HostBps,
			CollectBps: req.CollectBps,
			L1Bps:      req.L1Bps,
			L2Bps:      req.L2Bps,
			CoinRate:   req.CoinRate,
		}
		var err error
		for _, f := range []struct {
			raw string
			dst *time.Time
		}{
			{req.PeriodStart, &in.PeriodStart},
			{req.PeriodEnd, &in.PeriodEnd},
			{req.PayStart, &in.PayStart},
			{req.PayEnd, &in.PayEnd},
		} {
			*f.dst, err = time.Parse("2006-01-02", f.raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "dates must be YYYY-MM-DD"})
			}
		}

		period, created, err := settlementService.CreatePeriod(&in)
		if err != nil {
			return fail(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(period)
	})

	secured.Post("/settlement-periods/:id/activate", adminOnly, func(c *fiber.Ctx) error {
		periodID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid period id"})
		}
		var req struct {
			IsActive *bool `json:"is_active"`
		}
		active := true
		if err := c.BodyParser(&req); err == nil && req.IsActive != nil {
			active = *req.IsActive
		}
		period, err := settlementService.ActivatePeriod(periodID, active)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(period)
	})

	secured.Post("/settlement-periods/:id/generate", adminOnly, func(c *fiber.Ctx) error {
		periodID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid period id"})
		}
		regenerate := c.QueryBool("regenerate", false)
		if err := settlementService.GeneratePeriod(periodID, regenerate); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "generated", "period_id": periodID})
	})

	secured.Post("/settlement-periods/:id/generate-commissions", adminOnly, func(c *fiber.Ctx) error {
		periodID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid period id"})
		}
		if err := settlementService.GenerateCommissions(periodID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "commissions generated", "period_id": periodID})
	})

	secured.Post("/settlement-periods/:id/unlock-commissions", adminOnly, func(c *fiber.Ctx) error {
		periodID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid period id"})
		}
		if _, err := settlementService.GetPeriod(periodID); err != nil {
			return fail(c, err)
		}

		if beneficiary := queryInt64(c, "beneficiary_user_id"); beneficiary != nil {
			unlocked, err := unlockService.UnlockForBeneficiary(periodID, *beneficiary)
			if err != nil {
				return fail(c, err)
			}
			return c.JSON(fiber.Map{
				"period_id":           periodID,
				"beneficiary_user_id": *beneficiary,
				"unlocked_coins":      unlocked,
			})
		}

		result, err := unlockService.UnlockForPeriod(periodID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"period_id":            periodID,
			"unlocked_users":       result.UnlockedUsers,
			"unlocked_total_coins": result.UnlockedTotalCoins,
		})
	})

	secured.Get("/settlement-payments", adminOnly, func(c *fiber.Ctx) error {
		var status *models.PaymentStatus
		if raw := c.Query("status"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status filter"})
			}
			st := models.PaymentStatus(v)
			status = &st
		}
		payments, err := paymentService.ListPayments(0, queryInt64(c, "period_id"), status)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(payments)
	})

	secured.Post("/settlement-payments/:id/confirm", adminOnly, func(c *fiber.Ctx) error {
		paymentID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payment id"})
		}
		payment, err := paymentService.ConfirmPayment(paymentID, middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(payment)
	})

	secured.Post("/settlement-payments/:id/reject", adminOnly, func(c *fiber.Ctx) error {
		paymentID, err := paramInt64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payment id"})
		}
		var req struct {
			RejectReason string `json:"reject_reason"`
		}
		if err := c.BodyParser(&req); err != nil || req.RejectReason == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reject_reason is required"})
		}
		payment, err := paymentService.RejectPayment(paymentID, middleware.UserID(c), req.RejectReason)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(payment)
	})
}

func paramInt64(c *fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}

func queryInt64(c *fiber.Ctx, name string) *int64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
