package models

import "time"

// PayableStatus is the per-user payment obligation state
type PayableStatus int

const (
	PayableUnpaid  PayableStatus = 0
	PayablePartial PayableStatus = 1
	PayablePaid    PayableStatus = 2
	PayableOverdue PayableStatus = 3 // pay window closed with a balance remaining
)

// UserPayable tracks what one user owes the platform for one period.
// Mutated only by payment confirmation (and the zero-due sweep). Cumulative
// paid never exceeds due once confirmed — overpay is rejected at submission.
type UserPayable struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PeriodID int64 `gorm:"uniqueIndex:idx_payable_period_user;not null" json:"period_id"`
	UserID   int64 `gorm:"uniqueIndex:idx_payable_period_user;index;not null" json:"user_id"`

	AmountDueCoins  int64         `gorm:"not null;default:0" json:"amount_due_coins"`
	AmountPaidCoins int64         `gorm:"not null;default:0" json:"amount_paid_coins"`
	Status          PayableStatus `gorm:"not null;default:0" json:"status"`

	FirstPaidAt *time.Time `json:"first_paid_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (UserPayable) TableName() string { return "settlement_user_payable" }

// RemainingCoins is the still-unpaid part of the obligation, floored at zero
func (p *UserPayable) RemainingCoins() int64 {
	r := p.AmountDueCoins - p.AmountPaidCoins
	if r < 0 {
		return 0
	}
	return r
}
