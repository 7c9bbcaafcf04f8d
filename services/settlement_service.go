package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"account-settlement-system/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettlementService struct {
	DB *gorm.DB
}

func NewSettlementService(db *gorm.DB) *SettlementService {
	return &SettlementService{DB: db}
}

// PeriodInput is the admin-supplied configuration for a new settlement period
type PeriodInput struct {
	Name        string    `json:"name"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	PayStart    time.Time `json:"pay_start"`
	PayEnd      time.Time `json:"pay_end"`
	HostBps     int       `json:"host_bps"`
	CollectBps  int       `json:"collect_bps"`
	L1Bps       int       `json:"l1_bps"`
	L2Bps       int       `json:"l2_bps"`
	CoinRate    int64     `json:"coin_rate"`
}

func validatePeriodInput(in *PeriodInput) error {
	if in.PeriodStart.After(in.PeriodEnd) {
		return fmt.Errorf("%w: period_start after period_end", ErrBadPeriodConfig)
	}
	if in.PayStart.After(in.PayEnd) {
		return fmt.Errorf("%w: pay_start after pay_end", ErrBadPeriodConfig)
	}
	if in.CoinRate <= 0 {
		return fmt.Errorf("%w: coin_rate must be positive", ErrBadPeriodConfig)
	}
	if in.HostBps < 0 || in.HostBps > 10000 || in.CollectBps < 0 || in.CollectBps > 10000 {
		return fmt.Errorf("%w: host_bps/collect_bps out of range", ErrBadPeriodConfig)
	}
	if in.HostBps+in.CollectBps != 10000 {
		return fmt.Errorf("%w: host_bps + collect_bps must equal 10000", ErrBadPeriodConfig)
	}
	if in.L1Bps < 0 || in.L1Bps > 10000 || in.L2Bps < 0 || in.L2Bps > 10000 {
		return fmt.Errorf("%w: l1_bps/l2_bps out of range", ErrBadPeriodConfig)
	}
	if in.L1Bps+in.L2Bps > in.CollectBps {
		return fmt.Errorf("%w: l1_bps + l2_bps exceeds collect_bps", ErrBadPeriodConfig)
	}
	return nil
}

// CreatePeriod creates a settlement period. Idempotent on the earnings
// window: a second create with the same period_start/period_end returns the
// existing row untouched.
func (s *SettlementService) CreatePeriod(in *PeriodInput) (*models.SettlementPeriod, bool, error) {
	if err := validatePeriodInput(in); err != nil {
		return nil, false, err
	}

	var existing models.SettlementPeriod
	err := s.DB.Where("period_start = ? AND period_end = ?",
		models.DateOnly(in.PeriodStart), models.DateOnly(in.PeriodEnd)).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	name := in.Name
	if name == "" {
		name = fmt.Sprintf("%s ~ %s",
			in.PeriodStart.Format("2006-01-02"), in.PeriodEnd.Format("2006-01-02"))
	}

	period := models.SettlementPeriod{
		Name:        name,
		Code:        slug.Make(name),
		PeriodStart: models.DateOnly(in.PeriodStart),
		PeriodEnd:   models.DateOnly(in.PeriodEnd),
		PayStart:    models.DateOnly(in.PayStart),
		PayEnd:      models.DateOnly(in.PayEnd),
		HostBps:     in.HostBps,
		CollectBps:  in.CollectBps,
		L1Bps:       in.L1Bps,
		L2Bps:       in.L2Bps,
		CoinRate:    in.CoinRate,
		Status:      models.PeriodOpen,
	}
	if err := s.DB.Create(&period).Error; err != nil {
		return nil, false, err
	}
	return &period, true, nil
}

func (s *SettlementService) GetPeriod(periodID int64) (*models.SettlementPeriod, error) {
	var period models.SettlementPeriod
	if err := s.DB.First(&period, "period_id = ?", periodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, err
	}
	return &period, nil
}

func (s *SettlementService) ListPeriods() ([]models.SettlementPeriod, error) {
	var periods []models.SettlementPeriod
	err := s.DB.Order("period_id DESC").Find(&periods).Error
	return periods, err
}

// CurrentPeriod resolves the system-wide "current" period: the explicitly
// active one if set, otherwise the most recent OPEN/PAYING period. Pure
// query on every call — no caching, so concurrent requests never see a
// stale reference.
func (s *SettlementService) CurrentPeriod() (*models.SettlementPeriod, error) {
	var period models.SettlementPeriod
	err := s.DB.Where("is_active = ?", true).First(&period).Error
	if err == nil {
		return &period, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.DB.Where("status IN ?", []models.PeriodStatus{models.PeriodOpen, models.PeriodPaying}).
		Order("period_id DESC").First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCurrentPeriod
		}
		return nil, err
	}
	return &period, nil
}

// ActivatePeriod sets or clears the explicit current-period override.
// Activation clears the flag from every other period inside the same
// transaction, keeping at most one period active system-wide.
func (s *SettlementService) ActivatePeriod(periodID int64, active bool) (*models.SettlementPeriod, error) {
	var period models.SettlementPeriod
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&period, "period_id = ?", periodID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPeriodNotFound
			}
			return err
		}
		if active {
			if err := tx.Model(&models.SettlementPeriod{}).
				Where("is_active = ? AND period_id <> ?", true, periodID).
				Update("is_active", false).Error; err != nil {
				return err
			}
		}
		period.IsActive = active
		return tx.Model(&models.SettlementPeriod{}).
			Where("period_id = ?", periodID).
			Update("is_active", active).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Settlement] Period %d active=%t", periodID, active)
	return &period, nil
}

// splitIncome applies a period's bps configuration to one user's gross
// earnings. All divisions are integer floor divisions so coins never
// fractionalize; the platform retains whatever the splits leave behind.
// Commission shares are zero when the snapshot has no inviter at that level.
func splitIncome(p *models.SettlementPeriod, userID, gross int64, l1, l2 *int64) models.UserIncome {
	selfKeep := gross * int64(p.HostBps) / 10000
	selfPayable := gross * int64(p.CollectBps) / 10000

	var l1Coins, l2Coins int64
	if l1 != nil {
		l1Coins = gross * int64(p.L1Bps) / 10000
	}
	if l2 != nil {
		l2Coins = gross * int64(p.L2Bps) / 10000
	}

	return models.UserIncome{
		PeriodID:            p.PeriodID,
		UserID:              userID,
		GrossCoins:          gross,
		SelfKeepCoins:       selfKeep,
		SelfPayableCoins:    selfPayable,
		L1UserID:            l1,
		L2UserID:            l2,
		L1CommissionCoins:   l1Coins,
		L2CommissionCoins:   l2Coins,
		PlatformRetainCoins: selfPayable - l1Coins - l2Coins,
	}
}

// GeneratePeriod runs the full settlement generation for one period inside a
// single transaction:
//
//  1. freeze the referral graph into the per-period snapshot
//  2. aggregate earning_records over [period_start, period_end] per user
//  3. write income rows split by the period's bps config
//  4. derive commission rows (insert-if-absent)
//  5. write payable rows (amount_due = self_payable)
//  6. move the period to PAYING
//
// A period with no earnings in the window generates zero rows and still
// succeeds. regenerate wipes and redoes everything for the period, but is
// refused once any payment record exists — submitted money claims must never
// be invalidated silently.
func (s *SettlementService) GeneratePeriod(periodID int64, regenerate bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var period models.SettlementPeriod
		if err := tx.First(&period, "period_id = ?", periodID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPeriodNotFound
			}
			return err
		}

		var existing int64
		for _, m := range []interface{}{
			&models.ReferralSnapshot{}, &models.UserIncome{},
			&models.UserPayable{}, &models.Commission{},
		} {
			var n int64
			if err := tx.Model(m).Where("period_id = ?", periodID).Count(&n).Error; err != nil {
				return err
			}
			existing += n
		}
		if existing > 0 && !regenerate {
			return ErrAlreadyGenerated
		}

		if regenerate {
			var payments int64
			if err := tx.Model(&models.Payment{}).Where("period_id = ?", periodID).Count(&payments).Error; err != nil {
				return err
			}
			if payments > 0 {
				return ErrPaymentsExist
			}
			for _, m := range []interface{}{
				&models.UserPayable{}, &models.UserIncome{},
				&models.ReferralSnapshot{}, &models.Commission{},
			} {
				if err := tx.Where("period_id = ?", periodID).Delete(m).Error; err != nil {
					return err
				}
			}
		}

		// 1. Snapshot: copy the live referral graph for this period
		var referrals []models.UserReferral
		if err := tx.Find(&referrals).Error; err != nil {
			return err
		}
		snapshot := make(map[int64]models.UserReferral, len(referrals))
		snaps := make([]models.ReferralSnapshot, 0, len(referrals))
		for _, r := range referrals {
			snapshot[r.UserID] = r
			snaps = append(snaps, models.ReferralSnapshot{
				PeriodID:      periodID,
				UserID:        r.UserID,
				InviterLevel1: r.InviterLevel1,
				InviterLevel2: r.InviterLevel2,
			})
		}
		if len(snaps) > 0 {
			if err := tx.CreateInBatches(&snaps, 500).Error; err != nil {
				return err
			}
		}

		// 2+3. Aggregate earnings per user and split by bps
		type grossRow struct {
			UserID int64
			Gross  int64
		}
		var rows []grossRow
		if err := tx.Model(&models.EarningRecord{}).
			Select("user_id, COALESCE(SUM(coins_total), 0) AS gross").
			Where("stat_date BETWEEN ? AND ?", period.PeriodStart, period.PeriodEnd).
			Group("user_id").Order("user_id").
			Scan(&rows).Error; err != nil {
			return err
		}

		incomes := make([]models.UserIncome, 0, len(rows))
		for _, r := range rows {
			ref := snapshot[r.UserID]
			incomes = append(incomes, splitIncome(&period, r.UserID, r.Gross, ref.InviterLevel1, ref.InviterLevel2))
		}
		if len(incomes) > 0 {
			if err := tx.CreateInBatches(&incomes, 500).Error; err != nil {
				return err
			}
		}

		// 4. Commission rows derived from income
		if err := insertCommissions(tx, periodID); err != nil {
			return err
		}

		// 5. Payables: what each earner owes the platform this period
		payables := make([]models.UserPayable, 0, len(incomes))
		for _, inc := range incomes {
			payables = append(payables, models.UserPayable{
				PeriodID:       periodID,
				UserID:         inc.UserID,
				AmountDueCoins: inc.SelfPayableCoins,
				Status:         models.PayableUnpaid,
			})
		}
		if len(payables) > 0 {
			if err := tx.CreateInBatches(&payables, 500).Error; err != nil {
				return err
			}
		}

		// 6. Generation complete — payables are now open for payment
		if err := tx.Model(&models.SettlementPeriod{}).
			Where("period_id = ?", periodID).
			Update("status", models.PeriodPaying).Error; err != nil {
			return err
		}

		log.Printf("[Settlement] Generated period %d: %d incomes, %d snapshots (regenerate=%t)",
			periodID, len(incomes), len(snaps), regenerate)
		return nil
	})
}

// GenerateCommissions re-derives commission rows for a period without
// touching income, payables or the snapshot. Idempotent repair operation:
// rows are keyed by (period, source, beneficiary, level) and inserts of
// existing keys are skipped.
func (s *SettlementService) GenerateCommissions(periodID int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var period models.SettlementPeriod
		if err := tx.First(&period, "period_id = ?", periodID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPeriodNotFound
			}
			return err
		}
		return insertCommissions(tx, periodID)
	})
}

// insertCommissions derives commission rows from this period's income rows:
// one row per income with a positive commission amount and an inviter at
// that level. Insert-if-absent on the commission's unique key keeps the
// derivation idempotent under re-runs and retries.
func insertCommissions(tx *gorm.DB, periodID int64) error {
	var incomes []models.UserIncome
	if err := tx.Where("period_id = ?", periodID).Find(&incomes).Error; err != nil {
		return err
	}

	commissions := make([]models.Commission, 0, len(incomes))
	for _, inc := range incomes {
		if inc.L1UserID != nil && inc.L1CommissionCoins > 0 {
			commissions = append(commissions, models.Commission{
				PeriodID:          periodID,
				SourceUserID:      inc.UserID,
				BeneficiaryUserID: *inc.L1UserID,
				Level:             1,
				AmountCoins:       inc.L1CommissionCoins,
				FundingStatus:     models.FundingPending,
			})
		}
		if inc.L2UserID != nil && inc.L2CommissionCoins > 0 {
			commissions = append(commissions, models.Commission{
				PeriodID:          periodID,
				SourceUserID:      inc.UserID,
				BeneficiaryUserID: *inc.L2UserID,
				Level:             2,
				AmountCoins:       inc.L2CommissionCoins,
				FundingStatus:     models.FundingPending,
			})
		}
	}
	if len(commissions) == 0 {
		return nil
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "period_id"}, {Name: "source_user_id"},
			{Name: "beneficiary_user_id"}, {Name: "level"},
		},
		DoNothing: true,
	}).CreateInBatches(&commissions, 500).Error
}
