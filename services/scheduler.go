package services

import (
	"log"
	"time"

	"account-settlement-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartSettlementScheduler runs the periodic bookkeeping sweeps:
//
//   - hourly: flag payables OVERDUE once a period's pay window has closed
//     with a balance remaining
//   - hourly: mark zero-due payables PAID (nothing was ever owed, so no
//     payment will arrive to do it) and run the unlock sweep for every
//     PAYING period, releasing commissions whose beneficiaries became
//     eligible outside the confirm path
//   - every 10 minutes: re-enable script envs whose disable window expired
func (s *SettlementService) StartSettlementScheduler(unlock *UnlockService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			s.sweepOverduePayables()
			s.sweepZeroDuePayables()
			s.sweepUnlocks(unlock)
		}),
	)

	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			s.reenableExpiredEnvs()
		}),
	)
}

func (s *SettlementService) sweepOverduePayables() {
	today := models.DateOnly(time.Now())
	result := s.DB.Exec(`
		UPDATE settlement_user_payable p
		SET status = ?
		FROM settlement_periods sp
		WHERE sp.period_id = p.period_id
		  AND sp.pay_end < ?
		  AND p.status IN (?, ?)
		  AND p.amount_due_coins > p.amount_paid_coins`,
		models.PayableOverdue, today, models.PayableUnpaid, models.PayablePartial)
	if result.Error != nil {
		log.Printf("[Scheduler] Overdue sweep failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("[Scheduler] Marked %d payables overdue", result.RowsAffected)
	}
}

// sweepZeroDuePayables settles obligations that never required money.
// first_paid_at/paid_at stay NULL here — no payment ever happened; the
// unlock sweep right after makes these beneficiaries eligible.
func (s *SettlementService) sweepZeroDuePayables() {
	result := s.DB.Model(&models.UserPayable{}).
		Where("amount_due_coins <= 0 AND status <> ?", models.PayablePaid).
		Update("status", models.PayablePaid)
	if result.Error != nil {
		log.Printf("[Scheduler] Zero-due sweep failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("[Scheduler] Settled %d zero-due payables", result.RowsAffected)
	}
}

func (s *SettlementService) sweepUnlocks(unlock *UnlockService) {
	var periods []models.SettlementPeriod
	if err := s.DB.Where("status = ?", models.PeriodPaying).Find(&periods).Error; err != nil {
		log.Printf("[Scheduler] Unlock sweep query failed: %v", err)
		return
	}
	for _, p := range periods {
		result, err := unlock.UnlockForPeriod(p.PeriodID)
		if err != nil {
			log.Printf("[Scheduler] Unlock sweep failed for period %d: %v", p.PeriodID, err)
			continue
		}
		if result.UnlockedUsers > 0 {
			log.Printf("[Scheduler] Period %d: unlocked %d coins for %d users",
				p.PeriodID, result.UnlockedTotalCoins, result.UnlockedUsers)
		}
	}
}

func (s *SettlementService) reenableExpiredEnvs() {
	now := time.Now()
	result := s.DB.Model(&models.ScriptEnv{}).
		Where("status = 0 AND disabled_until IS NOT NULL AND disabled_until <= ?", now).
		Updates(map[string]interface{}{
			"status":         1,
			"disabled_at":    nil,
			"disabled_until": nil,
			"disable_days":   nil,
		})
	if result.Error != nil {
		log.Printf("[Scheduler] Env re-enable sweep failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("[Scheduler] Re-enabled %d script envs", result.RowsAffected)
	}
}
