package models

import "time"

// EarningRecord is one automation account's coin total for one day,
// pushed in by the earnings sync worker. Read-only input to settlement:
// the income calculator aggregates coins_total over a period's date range.
type EarningRecord struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   int64     `gorm:"index;not null" json:"user_id"`
	EnvID    int64     `gorm:"uniqueIndex:idx_earning_env_date;not null" json:"env_id"`
	StatDate time.Time `gorm:"type:date;uniqueIndex:idx_earning_env_date;index;not null" json:"stat_date"`

	CoinsTotal      int64 `gorm:"not null;default:0" json:"coins_total"`
	CoinsFromBox    int64 `gorm:"not null;default:0" json:"coins_from_box"`
	CoinsFromLook   int64 `gorm:"not null;default:0" json:"coins_from_look"`
	CoinsFromFood   int64 `gorm:"not null;default:0" json:"coins_from_food"`
	CoinsFromSearch int64 `gorm:"not null;default:0" json:"coins_from_search"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
