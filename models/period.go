package models

import "time"

// PeriodStatus is the settlement period lifecycle
type PeriodStatus int

const (
	PeriodOpen    PeriodStatus = 0 // created, earnings window may still be running
	PeriodPaying  PeriodStatus = 1 // generated, payables open for payment
	PeriodClosed  PeriodStatus = 2 // archived
)

// SettlementPeriod is a closed accounting window. The bps split parameters
// and coin_rate are fixed once generation has run; only status/is_active
// move afterwards.
//
// host_bps + collect_bps must equal 10000; l1_bps + l2_bps must not exceed
// collect_bps. All splits use integer floor division (coins * bps / 10000).
type SettlementPeriod struct {
	PeriodID int64  `gorm:"primaryKey;autoIncrement;column:period_id" json:"period_id"`
	Name     string `gorm:"size:64;not null" json:"name"`
	Code     string `gorm:"size:64;index" json:"code"` // slug of Name, for admin tooling

	PeriodStart time.Time `gorm:"type:date;not null;uniqueIndex:idx_period_window" json:"period_start"`
	PeriodEnd   time.Time `gorm:"type:date;not null;uniqueIndex:idx_period_window" json:"period_end"`
	PayStart    time.Time `gorm:"type:date;not null" json:"pay_start"`
	PayEnd      time.Time `gorm:"type:date;not null" json:"pay_end"`

	HostBps    int   `gorm:"not null" json:"host_bps"`    // earner keeps
	CollectBps int   `gorm:"not null" json:"collect_bps"` // earner owes the platform
	L1Bps      int   `gorm:"not null" json:"l1_bps"`      // direct inviter's share of gross
	L2Bps      int   `gorm:"not null" json:"l2_bps"`      // indirect inviter's share of gross
	CoinRate   int64 `gorm:"not null" json:"coin_rate"`   // coins per currency unit, display only

	Status   PeriodStatus `gorm:"not null;default:0" json:"status"`
	IsActive bool         `gorm:"not null;default:false" json:"is_active"` // at most one active period

	Timestamps
}

func (SettlementPeriod) TableName() string { return "settlement_periods" }

// InPayWindow reports whether the given day falls inside [pay_start, pay_end].
// Comparison is by calendar date, not instant.
func (p *SettlementPeriod) InPayWindow(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(p.PayStart)) && !d.After(DateOnly(p.PayEnd))
}

// DateOnly truncates a time to its calendar date in UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
