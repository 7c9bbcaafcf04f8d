package models

import "time"

// PaymentStatus is the admin-review state of a submitted payment claim
type PaymentStatus int

const (
	PaymentPending   PaymentStatus = 0
	PaymentConfirmed PaymentStatus = 1
	PaymentRejected  PaymentStatus = 2
)

// Payment is a user-submitted claim of having paid part of their payable.
// Created PENDING; an admin either confirms it (applies the amount to the
// payable and may trigger the commission funding cascade) or rejects it
// (record-only, no ledger effects). Both outcomes are terminal.
type Payment struct {
	PaymentID   int64  `gorm:"primaryKey;autoIncrement;column:payment_id" json:"payment_id"`
	PeriodID    int64  `gorm:"index;not null" json:"period_id"`
	PayerUserID int64  `gorm:"index;not null" json:"payer_user_id"`
	AmountCoins int64  `gorm:"not null" json:"amount_coins"`
	Method      string `gorm:"size:32" json:"method"`
	ProofURL    string `gorm:"size:512" json:"proof_url"`
	RefNo       string `gorm:"size:64;uniqueIndex" json:"ref_no"`

	Status       PaymentStatus `gorm:"not null;default:0" json:"status"`
	ConfirmedAt  *time.Time    `json:"confirmed_at,omitempty"`
	ConfirmedBy  *int64        `json:"confirmed_by,omitempty"`
	RejectReason *string       `gorm:"size:255" json:"reject_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Payment) TableName() string { return "settlement_payments" }
