package models

import "time"

// WithdrawStatus is the review state of a withdrawal request
type WithdrawStatus int

const (
	WithdrawPending  WithdrawStatus = 0
	WithdrawApproved WithdrawStatus = 1
	WithdrawPaidOut  WithdrawStatus = 2
	WithdrawRejected WithdrawStatus = 3
	WithdrawCanceled WithdrawStatus = 4
)

// WithdrawRequest consumes available_coins only, never locked_coins.
// The amount is debited at apply time; cancel/reject refunds it.
type WithdrawRequest struct {
	WithdrawID  int64  `gorm:"primaryKey;autoIncrement;column:withdraw_id" json:"withdraw_id"`
	UserID      int64  `gorm:"index;not null" json:"user_id"`
	AmountCoins int64  `gorm:"not null" json:"amount_coins"`
	Method      string `gorm:"size:32" json:"method"`
	AccountInfo string `gorm:"size:255" json:"account_info"`

	Status       WithdrawStatus `gorm:"not null;default:0" json:"status"`
	RequestedAt  time.Time      `gorm:"not null" json:"requested_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
	ProcessedBy  *int64         `json:"processed_by,omitempty"`
	RejectReason *string        `gorm:"size:255" json:"reject_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (WithdrawRequest) TableName() string { return "withdraw_requests" }
