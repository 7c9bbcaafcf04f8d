package services

import (
	"errors"

	"account-settlement-system/models"
	"account-settlement-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletService struct {
	DB         *gorm.DB
	Settlement *SettlementService
}

func NewWalletService(db *gorm.DB, settlement *SettlementService) *WalletService {
	return &WalletService{DB: db, Settlement: settlement}
}

// GetOrCreateWallet returns the user's wallet, creating a zero-balance row
// on first access. Upsert (insert-on-conflict-do-nothing + reread), not
// check-then-insert, so concurrent first access cannot race.
func (s *WalletService) GetOrCreateWallet(userID int64) (*models.WalletAccount, error) {
	if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WalletAccount{UserID: userID}).Error; err != nil {
		return nil, err
	}
	var wallet models.WalletAccount
	if err := s.DB.First(&wallet, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// getWalletForUpdate upserts the wallet row if absent and returns it under a
// row lock. Shared by the unlock engine and the withdrawal flows — every
// balance mutation goes through this lock.
func getWalletForUpdate(tx *gorm.DB, userID int64) (*models.WalletAccount, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WalletAccount{UserID: userID}).Error; err != nil {
		return nil, err
	}
	var wallet models.WalletAccount
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// DownlineDue aggregates a referral level's outstanding payables
type DownlineDue struct {
	Count       int64 `json:"cnt"`
	SumDueCoins int64 `json:"sum_due_coins"`
}

// WalletSummary is the wallet-page payload: balances, this period's
// obligation, downline arrears and commission expectations.
type WalletSummary struct {
	CoinRate int64                    `json:"coin_rate"`
	Wallet   *models.WalletAccount    `json:"wallet"`
	Period   *models.SettlementPeriod `json:"period,omitempty"`
	Payable  *models.UserPayable      `json:"my_payable,omitempty"`

	AvailableDisplay string `json:"available_display"`
	LockedDisplay    string `json:"locked_display"`

	MyRemainingDueCoins int64       `json:"my_remaining_due_coins"`
	L1Due               DownlineDue `json:"l1_due"`
	L2Due               DownlineDue `json:"l2_due"`

	CommissionExpectedCoins     int64 `json:"commission_expected_coins"`
	CommissionFundedLockedCoins int64 `json:"commission_funded_locked_coins"`
	CommissionUnfundedCoins     int64 `json:"commission_unfunded_coins"`
}

const defaultCoinRate = 10000

// Summary builds the wallet overview for one user. periodID nil resolves the
// current period; with no period at all only the balances are filled in.
func (s *WalletService) Summary(userID int64, periodID *int64) (*WalletSummary, error) {
	wallet, err := s.GetOrCreateWallet(userID)
	if err != nil {
		return nil, err
	}

	out := &WalletSummary{CoinRate: defaultCoinRate, Wallet: wallet}

	var period *models.SettlementPeriod
	if periodID == nil {
		period, err = s.Settlement.CurrentPeriod()
		if errors.Is(err, ErrNoCurrentPeriod) {
			out.fillDisplays()
			return out, nil
		}
	} else {
		period, err = s.Settlement.GetPeriod(*periodID)
	}
	if err != nil {
		return nil, err
	}
	out.Period = period
	if period.CoinRate > 0 {
		out.CoinRate = period.CoinRate
	}

	var payable models.UserPayable
	err = s.DB.Where("period_id = ? AND user_id = ?", period.PeriodID, userID).First(&payable).Error
	if err == nil {
		out.Payable = &payable
		out.MyRemainingDueCoins = payable.RemainingCoins()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Downline arrears, per snapshot level (snapshot, not the live graph)
	for level, dst := range map[string]*DownlineDue{
		"inviter_level1": &out.L1Due,
		"inviter_level2": &out.L2Due,
	} {
		row := struct {
			Cnt    int64
			SumDue int64
		}{}
		if err := s.DB.Model(&models.UserPayable{}).
			Select("COUNT(*) AS cnt, COALESCE(SUM(settlement_user_payable.amount_due_coins - settlement_user_payable.amount_paid_coins), 0) AS sum_due").
			Joins("JOIN settlement_referral_snapshot s ON s.period_id = settlement_user_payable.period_id AND s.user_id = settlement_user_payable.user_id").
			Where("settlement_user_payable.period_id = ?", period.PeriodID).
			Where("s."+level+" = ?", userID).
			Where("settlement_user_payable.status <> ?", models.PayablePaid).
			Scan(&row).Error; err != nil {
			return nil, err
		}
		dst.Count = row.Cnt
		dst.SumDueCoins = row.SumDue
	}

	sumCommissions := func(extra func(*gorm.DB) *gorm.DB) (int64, error) {
		var sum int64
		q := s.DB.Model(&models.Commission{}).
			Select("COALESCE(SUM(amount_coins), 0)").
			Where("period_id = ? AND beneficiary_user_id = ?", period.PeriodID, userID)
		if extra != nil {
			q = extra(q)
		}
		err := q.Scan(&sum).Error
		return sum, err
	}

	if out.CommissionExpectedCoins, err = sumCommissions(nil); err != nil {
		return nil, err
	}
	if out.CommissionFundedLockedCoins, err = sumCommissions(func(q *gorm.DB) *gorm.DB {
		return q.Where("funding_status = ? AND is_unlocked = ?", models.Funded, false)
	}); err != nil {
		return nil, err
	}
	if out.CommissionUnfundedCoins, err = sumCommissions(func(q *gorm.DB) *gorm.DB {
		return q.Where("funding_status = ?", models.FundingPending)
	}); err != nil {
		return nil, err
	}

	out.fillDisplays()
	return out, nil
}

func (w *WalletSummary) fillDisplays() {
	w.AvailableDisplay = utils.FormatMoney(w.Wallet.AvailableCoins, w.CoinRate)
	w.LockedDisplay = utils.FormatMoney(w.Wallet.LockedCoins, w.CoinRate)
}

// Ledger returns the user's most recent ledger rows, optionally scoped to a
// period
func (s *WalletService) Ledger(userID int64, periodID *int64, limit int) ([]models.WalletLedger, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	query := s.DB.Where("user_id = ?", userID)
	if periodID != nil {
		query = query.Where("period_id = ?", *periodID)
	}
	var entries []models.WalletLedger
	err := query.Order("ledger_id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
