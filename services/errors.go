package services

import (
	"errors"
	"fmt"
)

// Validation / state errors surfaced to callers as rejected requests.
// Handlers map these onto HTTP statuses; nothing below commits partial state.
var (
	ErrPeriodNotFound    = errors.New("settlement period not found")
	ErrNoCurrentPeriod   = errors.New("no open settlement period")
	ErrBadPeriodConfig   = errors.New("invalid settlement period configuration")
	ErrAlreadyGenerated  = errors.New("period already generated; pass regenerate to redo")
	ErrPaymentsExist     = errors.New("period has payment records; regenerate is blocked")
	ErrOutsidePayWindow  = errors.New("not inside the period's pay window")
	ErrPayableMissing    = errors.New("no payable record for this period")
	ErrNothingRemaining  = errors.New("payable already settled, nothing to pay")
	ErrOverRemaining     = errors.New("amount exceeds remaining due")
	ErrPaymentNotFound   = errors.New("payment record not found")
	ErrPaymentNotPending = errors.New("payment is not pending review")

	ErrWithdrawNotFound     = errors.New("withdraw request not found")
	ErrWithdrawNotPending   = errors.New("withdraw request is not pending")
	ErrWithdrawFinished     = errors.New("withdraw request already finished")
	ErrInsufficientBalance  = errors.New("available balance insufficient")
	ErrInvalidAmount        = errors.New("amount_coins must be positive")
	ErrInvalidCredentials   = errors.New("invalid username or password")

	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrBadReferral   = errors.New("invalid referral chain")
)

// ConsistencyError means the ledger and wallet disagree — e.g. an unlock
// needs more locked coins than the wallet holds. Never clamped or
// auto-corrected; the operation aborts and the books need an operator.
type ConsistencyError struct {
	UserID int64
	Locked int64
	Need   int64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("wallet consistency violation: user %d has locked=%d, unlock needs %d",
		e.UserID, e.Locked, e.Need)
}
