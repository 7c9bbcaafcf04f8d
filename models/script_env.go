package models

import "time"

// ScriptEnv is a proxied automation account ("ksck" environment variable)
// owned by a user and synced to the external automation runner. Only the
// fields the settlement side needs live here; sync details stay with the
// runner service.
type ScriptEnv struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64  `gorm:"index;not null" json:"user_id"`
	Remark string `gorm:"size:128" json:"remark"`
	Status int    `gorm:"not null;default:1" json:"status"` // 1=enabled, 0=disabled

	// Temporary-disable window; the scheduler re-enables once DisabledUntil passes
	DisabledAt    *time.Time `json:"disabled_at,omitempty"`
	DisabledUntil *time.Time `json:"disabled_until,omitempty"`
	DisableDays   *int       `json:"disable_days,omitempty"`

	Timestamps
}
