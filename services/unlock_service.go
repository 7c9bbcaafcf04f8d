package services

import (
	"log"
	"time"

	"account-settlement-system/models"

	"gorm.io/gorm"
)

// UnlockService moves funded commission money from locked to available.
// A commission unlocks only when both legs of the debt are settled: the
// source user's payment funded it, and the beneficiary has cleared their own
// payable for the period. Which side pays first does not matter.
type UnlockService struct {
	DB *gorm.DB
}

func NewUnlockService(db *gorm.DB) *UnlockService {
	return &UnlockService{DB: db}
}

// UnlockResult summarizes a batch unlock sweep
type UnlockResult struct {
	UnlockedUsers      int   `json:"unlocked_users"`
	UnlockedTotalCoins int64 `json:"unlocked_total_coins"`
}

// UnlockForBeneficiary unlocks one beneficiary's eligible commissions for a
// period in its own transaction. Returns the unlocked amount (zero when
// nothing qualifies).
func (s *UnlockService) UnlockForBeneficiary(periodID, beneficiaryUserID int64) (int64, error) {
	var unlocked int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		unlocked, err = unlockForBeneficiary(tx, periodID, beneficiaryUserID, time.Now())
		return err
	})
	return unlocked, err
}

// UnlockForPeriod sweeps every beneficiary with funded-but-locked
// commissions whose own payable is PAID. Administrative backfill for paths
// that never fired the confirm-time cascade (e.g. a zero-due payable marked
// PAID by the scheduler). Runs as one transaction so a mid-sweep failure
// leaves no partial unlock.
func (s *UnlockService) UnlockForPeriod(periodID int64) (*UnlockResult, error) {
	result := &UnlockResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var beneficiaries []int64
		if err := tx.Model(&models.Commission{}).
			Joins("JOIN settlement_user_payable p ON p.period_id = settlement_commissions.period_id AND p.user_id = settlement_commissions.beneficiary_user_id").
			Where("settlement_commissions.period_id = ?", periodID).
			Where("settlement_commissions.funding_status = ?", models.Funded).
			Where("settlement_commissions.is_unlocked = ?", false).
			Where("p.status = ?", models.PayablePaid).
			Group("settlement_commissions.beneficiary_user_id").
			Pluck("settlement_commissions.beneficiary_user_id", &beneficiaries).Error; err != nil {
			return err
		}

		now := time.Now()
		for _, b := range beneficiaries {
			unlocked, err := unlockForBeneficiary(tx, periodID, b, now)
			if err != nil {
				return err
			}
			if unlocked > 0 {
				result.UnlockedUsers++
				result.UnlockedTotalCoins += unlocked
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// unlockForBeneficiary is the single-beneficiary unlock step, run inside the
// caller's transaction so payment confirmation can chain it after the
// funding cascade. Lock order: commission rows (via FOR UPDATE on the sum
// query), then the wallet row — wallets always last, matching every other
// call path.
func unlockForBeneficiary(tx *gorm.DB, periodID, beneficiaryUserID int64, now time.Time) (int64, error) {
	// Eligible = funded, not yet unlocked, and the beneficiary's own payable
	// for the period is PAID. The row locks serialize concurrent unlock
	// attempts for the same beneficiary.
	var sumCoins int64
	if err := tx.Raw(`
		SELECT COALESCE(SUM(amount_coins), 0)
		FROM (
			SELECT c.amount_coins
			FROM settlement_commissions c
			JOIN settlement_user_payable p
			  ON p.period_id = c.period_id AND p.user_id = c.beneficiary_user_id
			WHERE c.period_id = ?
			  AND c.beneficiary_user_id = ?
			  AND c.funding_status = ?
			  AND c.is_unlocked = ?
			  AND p.status = ?
			FOR UPDATE OF c
		) eligible`,
		periodID, beneficiaryUserID, models.Funded, false, models.PayablePaid,
	).Scan(&sumCoins).Error; err != nil {
		return 0, err
	}
	if sumCoins <= 0 {
		return 0, nil
	}

	wallet, err := getWalletForUpdate(tx, beneficiaryUserID)
	if err != nil {
		return 0, err
	}
	if wallet.LockedCoins < sumCoins {
		// Funded commissions always lock coins first, so a shortfall here
		// means the books are corrupt somewhere upstream. Abort loudly.
		return 0, &ConsistencyError{UserID: beneficiaryUserID, Locked: wallet.LockedCoins, Need: sumCoins}
	}

	if err := tx.Model(&models.Commission{}).
		Where("period_id = ? AND beneficiary_user_id = ? AND funding_status = ? AND is_unlocked = ?",
			periodID, beneficiaryUserID, models.Funded, false).
		Updates(map[string]interface{}{
			"is_unlocked": true,
			"unlocked_at": now,
		}).Error; err != nil {
		return 0, err
	}

	if err := tx.Create(&models.WalletLedger{
		UserID:              beneficiaryUserID,
		PeriodID:            &periodID,
		EntryType:           models.EntryCommissionUnlock,
		DeltaAvailableCoins: sumCoins,
		DeltaLockedCoins:    -sumCoins,
		Remark:              "unlock after paid",
	}).Error; err != nil {
		return 0, err
	}

	if err := tx.Model(&models.WalletAccount{}).
		Where("user_id = ?", beneficiaryUserID).
		Updates(map[string]interface{}{
			"available_coins": gorm.Expr("available_coins + ?", sumCoins),
			"locked_coins":    gorm.Expr("locked_coins - ?", sumCoins),
		}).Error; err != nil {
		return 0, err
	}

	log.Printf("[Unlock] period=%d beneficiary=%d unlocked %d coins", periodID, beneficiaryUserID, sumCoins)
	return sumCoins, nil
}
