package services

import (
	"os"
	"testing"
	"time"

	"account-settlement-system/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens the database named by TEST_DATABASE_URL, migrates the schema
// and wipes every settlement table. Database-backed tests skip when the
// variable is unset.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database-backed test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ScriptEnv{},
		&models.EarningRecord{},
		&models.UserReferral{},
		&models.ReferralSnapshot{},
		&models.SettlementPeriod{},
		&models.UserIncome{},
		&models.Commission{},
		&models.UserPayable{},
		&models.Payment{},
		&models.WalletAccount{},
		&models.WalletLedger{},
		&models.WithdrawRequest{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	for _, table := range []string{
		"wallet_ledger", "wallet_accounts", "withdraw_requests",
		"settlement_payments", "settlement_user_payable", "settlement_commissions",
		"settlement_user_income", "settlement_referral_snapshot", "settlement_periods",
		"earning_records", "user_referrals", "script_envs", "users",
	} {
		if err := db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY CASCADE").Error; err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id int64, username string) {
	t.Helper()
	if err := db.Create(&models.User{
		ID:           id,
		Username:     username,
		PasswordHash: "x",
		Role:         models.RoleUser,
		Status:       1,
	}).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

func seedReferral(t *testing.T, db *gorm.DB, userID int64, l1, l2 *int64) {
	t.Helper()
	if err := db.Create(&models.UserReferral{
		UserID:        userID,
		InviterLevel1: l1,
		InviterLevel2: l2,
	}).Error; err != nil {
		t.Fatalf("seed referral for %d: %v", userID, err)
	}
}

func seedEarning(t *testing.T, db *gorm.DB, userID, envID int64, day time.Time, coins int64) {
	t.Helper()
	if err := db.Create(&models.EarningRecord{
		UserID:     userID,
		EnvID:      envID,
		StatDate:   models.DateOnly(day),
		CoinsTotal: coins,
	}).Error; err != nil {
		t.Fatalf("seed earning for %d: %v", userID, err)
	}
}

// seedPayingPeriod creates a period whose earnings window ended yesterday
// and whose pay window includes today, using the standard bps scenario.
func seedPayingPeriod(t *testing.T, svc *SettlementService) *models.SettlementPeriod {
	t.Helper()
	now := time.Now()
	period, _, err := svc.CreatePeriod(&PeriodInput{
		Name:        "test period",
		PeriodStart: now.AddDate(0, 0, -30),
		PeriodEnd:   now.AddDate(0, 0, -1),
		PayStart:    now.AddDate(0, 0, -1),
		PayEnd:      now.AddDate(0, 0, 7),
		HostBps:     6000,
		CollectBps:  4000,
		L1Bps:       2000,
		L2Bps:       400,
		CoinRate:    10000,
	})
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	return period
}

func i64(v int64) *int64 { return &v }

func nowUTC() time.Time { return time.Now().UTC() }

func assertWallet(t *testing.T, db *gorm.DB, userID, wantAvailable, wantLocked int64) {
	t.Helper()
	var wallet models.WalletAccount
	if err := db.First(&wallet, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("wallet for %d: %v", userID, err)
	}
	if wallet.AvailableCoins != wantAvailable || wallet.LockedCoins != wantLocked {
		t.Errorf("wallet %d: available=%d locked=%d, want %d/%d",
			userID, wallet.AvailableCoins, wallet.LockedCoins, wantAvailable, wantLocked)
	}
}

// assertLedgerMatchesWallet checks the reconciliation invariant: the sum of
// a user's ledger deltas equals their current balance.
func assertLedgerMatchesWallet(t *testing.T, db *gorm.DB, userID int64) {
	t.Helper()
	var sums struct {
		Available int64
		Locked    int64
	}
	if err := db.Model(&models.WalletLedger{}).
		Select("COALESCE(SUM(delta_available_coins), 0) AS available, COALESCE(SUM(delta_locked_coins), 0) AS locked").
		Where("user_id = ?", userID).
		Scan(&sums).Error; err != nil {
		t.Fatalf("ledger sums for %d: %v", userID, err)
	}
	var wallet models.WalletAccount
	if err := db.First(&wallet, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("wallet for %d: %v", userID, err)
	}
	if wallet.AvailableCoins != sums.Available || wallet.LockedCoins != sums.Locked {
		t.Errorf("ledger out of balance for user %d: wallet available=%d locked=%d, ledger sums %d/%d",
			userID, wallet.AvailableCoins, wallet.LockedCoins, sums.Available, sums.Locked)
	}
}
