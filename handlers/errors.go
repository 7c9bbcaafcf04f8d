package handlers

import (
	"errors"

	"account-settlement-system/services"

	"github.com/gofiber/fiber/v2"
)

// fail maps service errors onto HTTP statuses. Validation and state errors
// come back 400, missing records 404, and conflicts that need an operator
// (blocked regenerate, ledger inconsistencies) 409.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var consistency *services.ConsistencyError
	switch {
	case errors.As(err, &consistency),
		errors.Is(err, services.ErrPaymentsExist),
		errors.Is(err, services.ErrUsernameTaken):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrPeriodNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrPayableMissing),
		errors.Is(err, services.ErrWithdrawNotFound),
		errors.Is(err, services.ErrUserNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrBadPeriodConfig),
		errors.Is(err, services.ErrNoCurrentPeriod),
		errors.Is(err, services.ErrAlreadyGenerated),
		errors.Is(err, services.ErrOutsidePayWindow),
		errors.Is(err, services.ErrNothingRemaining),
		errors.Is(err, services.ErrOverRemaining),
		errors.Is(err, services.ErrPaymentNotPending),
		errors.Is(err, services.ErrWithdrawNotPending),
		errors.Is(err, services.ErrWithdrawFinished),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrBadReferral):
		status = fiber.StatusBadRequest
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
