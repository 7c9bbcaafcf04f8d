package models

import "time"

// FundingStatus tracks whether a commission is backed by real paid-in money
type FundingStatus int

const (
	FundingPending FundingStatus = 0 // source user has not cleared their payable
	Funded         FundingStatus = 1 // source user paid in full; coins locked in beneficiary wallet
)

// Commission is money owed to an upstream referrer (beneficiary), funded by
// the downstream earner's (source) debt payment. Lifecycle: PENDING at
// generation → FUNDED when the source clears their payable → unlocked once
// the beneficiary has also cleared their own payable for the period.
// Terminal once unlocked.
type Commission struct {
	ID                int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PeriodID          int64 `gorm:"uniqueIndex:idx_commission_row;not null" json:"period_id"`
	SourceUserID      int64 `gorm:"uniqueIndex:idx_commission_row;index;not null" json:"source_user_id"`
	BeneficiaryUserID int64 `gorm:"uniqueIndex:idx_commission_row;index;not null" json:"beneficiary_user_id"`
	Level             int   `gorm:"uniqueIndex:idx_commission_row;not null" json:"level"` // 1 or 2

	AmountCoins   int64         `gorm:"not null" json:"amount_coins"`
	FundingStatus FundingStatus `gorm:"not null;default:0" json:"funding_status"`
	FundedAt      *time.Time    `json:"funded_at,omitempty"`
	IsUnlocked    bool          `gorm:"not null;default:false" json:"is_unlocked"`
	UnlockedAt    *time.Time    `json:"unlocked_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Commission) TableName() string { return "settlement_commissions" }
