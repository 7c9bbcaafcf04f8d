package models

import "time"

// Wallet ledger entry types. Every wallet mutation appends exactly one row
// (or one grouped row per beneficiary) whose deltas match the account change.
const (
	EntryCommissionLockedIn = "COMMISSION_LOCKED_IN" // downline paid; coins locked for beneficiary
	EntryCommissionUnlock   = "COMMISSION_UNLOCK"    // locked → available after beneficiary also paid
	EntryWithdrawApply      = "WITHDRAW_APPLY"
	EntryWithdrawRefund     = "WITHDRAW_REFUND"
	EntryWithdrawPaid       = "WITHDRAW_PAID" // audit only, zero deltas
)

// WalletAccount is a user's coin balance. available_coins is withdrawable;
// locked_coins is funded commission income still gated on the user's own
// settlement. Both must stay non-negative at all times.
type WalletAccount struct {
	UserID         int64 `gorm:"primaryKey" json:"user_id"`
	AvailableCoins int64 `gorm:"not null;default:0" json:"available_coins"`
	LockedCoins    int64 `gorm:"not null;default:0" json:"locked_coins"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (WalletAccount) TableName() string { return "wallet_accounts" }

// WalletLedger is the append-only audit trail for wallet mutations.
// Reconciliation invariant: for every user, the sum of ledger deltas equals
// the current wallet balance.
type WalletLedger struct {
	LedgerID int64  `gorm:"primaryKey;autoIncrement;column:ledger_id" json:"ledger_id"`
	UserID   int64  `gorm:"index;not null" json:"user_id"`
	PeriodID *int64 `gorm:"index" json:"period_id,omitempty"`

	EntryType           string `gorm:"size:32;not null" json:"entry_type"`
	DeltaAvailableCoins int64  `gorm:"not null;default:0" json:"delta_available_coins"`
	DeltaLockedCoins    int64  `gorm:"not null;default:0" json:"delta_locked_coins"`

	RefSourceUserID *int64 `json:"ref_source_user_id,omitempty"`
	Remark          string `gorm:"size:255" json:"remark"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (WalletLedger) TableName() string { return "wallet_ledger" }
