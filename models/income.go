package models

import "time"

// UserIncome is one user's aggregated earnings for one period, split by the
// period's bps configuration:
//
//	self_keep + self_payable == gross            (floor-division tolerance)
//	l1_commission + l2_commission + platform_retain == self_payable
//
// Commission columns are zero when the snapshot has no inviter at that level.
// Generated once per period; wiped and redone only on explicit regenerate.
type UserIncome struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PeriodID int64 `gorm:"uniqueIndex:idx_income_period_user;not null" json:"period_id"`
	UserID   int64 `gorm:"uniqueIndex:idx_income_period_user;not null" json:"user_id"`

	GrossCoins       int64 `gorm:"not null;default:0" json:"gross_coins"`
	SelfKeepCoins    int64 `gorm:"not null;default:0" json:"self_keep_coins"`
	SelfPayableCoins int64 `gorm:"not null;default:0" json:"self_payable_coins"`

	L1UserID          *int64 `json:"l1_user_id,omitempty"`
	L2UserID          *int64 `json:"l2_user_id,omitempty"`
	L1CommissionCoins int64  `gorm:"not null;default:0" json:"l1_commission_coins"`
	L2CommissionCoins int64  `gorm:"not null;default:0" json:"l2_commission_coins"`

	PlatformRetainCoins int64 `gorm:"not null;default:0" json:"platform_retain_coins"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (UserIncome) TableName() string { return "settlement_user_income" }
