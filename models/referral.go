package models

import "time"

// UserReferral is the live two-level referral graph: who invited this user
// directly (level 1) and who invited the inviter (level 2). Settlement never
// reads this table after generation — it works off the per-period snapshot.
type UserReferral struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64  `gorm:"uniqueIndex;not null" json:"user_id"`
	InviterLevel1 *int64 `gorm:"index" json:"inviter_level1,omitempty"`
	InviterLevel2 *int64 `gorm:"index" json:"inviter_level2,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// ReferralSnapshot freezes a user's inviter chain for one settlement period.
// Copied from user_referrals at generation time and never mutated, so later
// referral changes cannot shift already-generated commission math.
type ReferralSnapshot struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PeriodID      int64  `gorm:"uniqueIndex:idx_snapshot_period_user;not null" json:"period_id"`
	UserID        int64  `gorm:"uniqueIndex:idx_snapshot_period_user;not null" json:"user_id"`
	InviterLevel1 *int64 `json:"inviter_level1,omitempty"`
	InviterLevel2 *int64 `json:"inviter_level2,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ReferralSnapshot) TableName() string { return "settlement_referral_snapshot" }
