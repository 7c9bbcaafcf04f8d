package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole separates platform operators from regular account holders
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User is a platform account. Referral links and all settlement entities
// reference users by integer ID.
type User struct {
	ID           int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string   `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Nickname     string   `gorm:"size:64" json:"nickname"`
	PasswordHash string   `gorm:"size:128;not null" json:"-"`
	Role         UserRole `gorm:"size:16;not null;default:'user'" json:"role"`
	Status       int      `gorm:"not null;default:1" json:"status"` // 1=active, 0=disabled

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
