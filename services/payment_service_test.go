package services

import (
	"errors"
	"testing"

	"account-settlement-system/models"
)

// Full two-sided flow: user 3 pays → commissions to 2 and 1 become FUNDED
// and locked; only when 2 clears their own payable does 2's money move to
// available. 1 never has a payable, so 1 stays locked throughout.
func TestConfirmPaymentFundsAndUnlocks(t *testing.T) {
	db := testDB(t)
	svc := NewSettlementService(db)
	paySvc := NewPaymentService(db, svc)
	period := seedScenario(t, svc)

	if err := svc.GeneratePeriod(period.PeriodID, false); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Overpay is stopped at submission, before any admin sees it
	if _, err := paySvc.SubmitPayment(3, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 40001,
	}); !errors.Is(err, ErrOverRemaining) {
		t.Fatalf("overpay: got %v, want ErrOverRemaining", err)
	}

	payment, err := paySvc.SubmitPayment(3, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 40000, Method: "alipay",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if payment.Status != models.PaymentPending || payment.RefNo == "" {
		t.Fatalf("submitted payment = %+v, want pending with ref no", payment)
	}

	confirmed, err := paySvc.ConfirmPayment(payment.PaymentID, 99)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.PaymentConfirmed || confirmed.ConfirmedBy == nil || *confirmed.ConfirmedBy != 99 {
		t.Errorf("confirmed payment = %+v", confirmed)
	}

	var payable3 models.UserPayable
	db.Where("period_id = ? AND user_id = 3", period.PeriodID).First(&payable3)
	if payable3.Status != models.PayablePaid || payable3.AmountPaidCoins != 40000 {
		t.Errorf("payer payable = %+v, want PAID with 40000 paid", payable3)
	}
	if payable3.FirstPaidAt == nil || payable3.PaidAt == nil {
		t.Error("paid payable missing first_paid_at/paid_at stamps")
	}

	// Commissions sourced from 3 are funded; the 2→1 commission is not
	var fundedFrom3, pendingTotal int64
	db.Model(&models.Commission{}).
		Where("period_id = ? AND source_user_id = 3 AND funding_status = ?", period.PeriodID, models.Funded).
		Count(&fundedFrom3)
	db.Model(&models.Commission{}).
		Where("period_id = ? AND funding_status = ?", period.PeriodID, models.FundingPending).
		Count(&pendingTotal)
	if fundedFrom3 != 2 || pendingTotal != 1 {
		t.Errorf("funded from 3 = %d (want 2), still pending = %d (want 1)", fundedFrom3, pendingTotal)
	}

	// Both beneficiaries hold locked coins; neither is unlocked yet: 2 still
	// owes their own payable, 1 has no payable row at all
	assertWallet(t, db, 2, 0, 20000)
	assertWallet(t, db, 1, 0, 4000)

	// Further submission against a settled payable is refused
	if _, err := paySvc.SubmitPayment(3, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 1,
	}); !errors.Is(err, ErrNothingRemaining) {
		t.Errorf("pay after settled: got %v, want ErrNothingRemaining", err)
	}

	// Now 2 clears their own 20000 payable: this funds the 2→1 commission
	// and unlocks 2's previously funded 20000
	payment2, err := paySvc.SubmitPayment(2, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 20000,
	})
	if err != nil {
		t.Fatalf("submit for 2: %v", err)
	}
	if _, err := paySvc.ConfirmPayment(payment2.PaymentID, 99); err != nil {
		t.Fatalf("confirm for 2: %v", err)
	}

	assertWallet(t, db, 2, 20000, 0)
	assertWallet(t, db, 1, 0, 14000)

	var unlocked2 int64
	db.Model(&models.Commission{}).
		Where("period_id = ? AND beneficiary_user_id = 2 AND is_unlocked = ?", period.PeriodID, true).
		Count(&unlocked2)
	if unlocked2 != 1 {
		t.Errorf("unlocked commissions for 2 = %d, want 1", unlocked2)
	}

	assertLedgerMatchesWallet(t, db, 1)
	assertLedgerMatchesWallet(t, db, 2)

	// Double confirm must not double-fund
	if _, err := paySvc.ConfirmPayment(payment.PaymentID, 99); !errors.Is(err, ErrPaymentNotPending) {
		t.Errorf("double confirm: got %v, want ErrPaymentNotPending", err)
	}
}

func TestSubmitPaymentValidation(t *testing.T) {
	db := testDB(t)
	svc := NewSettlementService(db)
	paySvc := NewPaymentService(db, svc)
	period := seedScenario(t, svc)
	if err := svc.GeneratePeriod(period.PeriodID, false); err != nil {
		t.Fatal(err)
	}

	if _, err := paySvc.SubmitPayment(3, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 0,
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}

	// User 1 never earned, so no payable exists
	if _, err := paySvc.SubmitPayment(1, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 100,
	}); !errors.Is(err, ErrPayableMissing) {
		t.Errorf("no payable: got %v, want ErrPayableMissing", err)
	}
}

func TestSubmitPaymentOutsideWindow(t *testing.T) {
	db := testDB(t)
	svc := NewSettlementService(db)
	paySvc := NewPaymentService(db, svc)

	now := models.DateOnly(nowUTC())
	period, _, err := svc.CreatePeriod(&PeriodInput{
		PeriodStart: now.AddDate(0, 0, -90),
		PeriodEnd:   now.AddDate(0, 0, -61),
		PayStart:    now.AddDate(0, 0, -60),
		PayEnd:      now.AddDate(0, 0, -50),
		HostBps:     6000,
		CollectBps:  4000,
		L1Bps:       2000,
		L2Bps:       400,
		CoinRate:    10000,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := paySvc.SubmitPayment(3, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 100,
	}); !errors.Is(err, ErrOutsidePayWindow) {
		t.Errorf("closed window: got %v, want ErrOutsidePayWindow", err)
	}
}

func TestRejectPayment(t *testing.T) {
	db := testDB(t)
	svc := NewSettlementService(db)
	paySvc := NewPaymentService(db, svc)
	period := seedScenario(t, svc)
	if err := svc.GeneratePeriod(period.PeriodID, false); err != nil {
		t.Fatal(err)
	}

	payment, err := paySvc.SubmitPayment(3, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 10000,
	})
	if err != nil {
		t.Fatal(err)
	}

	rejected, err := paySvc.RejectPayment(payment.PaymentID, 99, "proof unreadable")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.PaymentRejected || rejected.RejectReason == nil {
		t.Errorf("rejected payment = %+v", rejected)
	}

	// No payable or wallet side effects
	var payable models.UserPayable
	db.Where("period_id = ? AND user_id = 3", period.PeriodID).First(&payable)
	if payable.AmountPaidCoins != 0 || payable.Status != models.PayableUnpaid {
		t.Errorf("payable after reject = %+v, want untouched", payable)
	}

	if _, err := paySvc.ConfirmPayment(payment.PaymentID, 99); !errors.Is(err, ErrPaymentNotPending) {
		t.Errorf("confirm after reject: got %v, want ErrPaymentNotPending", err)
	}
}

// Zero-due beneficiaries never pay through the normal flow; the scheduler
// sweep settles them and the period-wide unlock sweep releases their coins.
func TestZeroDueSweepAndUnlockForPeriod(t *testing.T) {
	db := testDB(t)
	svc := NewSettlementService(db)
	paySvc := NewPaymentService(db, svc)
	unlockSvc := NewUnlockService(db)

	seedUser(t, db, 1, "inviter")
	seedUser(t, db, 2, "earner")
	seedReferral(t, db, 2, i64(1), nil)
	period := seedPayingPeriod(t, svc)

	day := nowUTC().AddDate(0, 0, -5)
	seedEarning(t, db, 2, 20, day, 100000)
	// 1 coin of gross floors every split to zero: due 0, but a payable row
	// still exists for user 1
	seedEarning(t, db, 1, 10, day, 1)

	if err := svc.GeneratePeriod(period.PeriodID, false); err != nil {
		t.Fatal(err)
	}

	payment, err := paySvc.SubmitPayment(2, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 40000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := paySvc.ConfirmPayment(payment.PaymentID, 99); err != nil {
		t.Fatal(err)
	}

	// Funded but still locked: user 1's zero-due payable is UNPAID until swept
	assertWallet(t, db, 1, 0, 20000)

	svc.sweepZeroDuePayables()

	var payable1 models.UserPayable
	db.Where("period_id = ? AND user_id = 1", period.PeriodID).First(&payable1)
	if payable1.Status != models.PayablePaid {
		t.Fatalf("zero-due payable after sweep = %d, want PAID", payable1.Status)
	}
	if payable1.FirstPaidAt != nil || payable1.PaidAt != nil {
		t.Error("zero-due sweep must not stamp first_paid_at/paid_at")
	}

	result, err := unlockSvc.UnlockForPeriod(period.PeriodID)
	if err != nil {
		t.Fatal(err)
	}
	if result.UnlockedUsers != 1 || result.UnlockedTotalCoins != 20000 {
		t.Errorf("sweep result = %+v, want 1 user / 20000 coins", result)
	}
	assertWallet(t, db, 1, 20000, 0)

	// Re-running the sweep finds nothing new
	result, err = unlockSvc.UnlockForPeriod(period.PeriodID)
	if err != nil {
		t.Fatal(err)
	}
	if result.UnlockedUsers != 0 || result.UnlockedTotalCoins != 0 {
		t.Errorf("second sweep result = %+v, want empty", result)
	}

	assertLedgerMatchesWallet(t, db, 1)
}

// A commission row derived by the repair operation after its source already
// paid must stay PENDING: only the funding cascade's own stamp pairs a FUNDED
// row with a wallet credit, and a FUNDED row without one would poison every
// later unlock for that beneficiary.
func TestRepairedCommissionAfterConfirmStaysPending(t *testing.T) {
	db := testDB(t)
	svc := NewSettlementService(db)
	paySvc := NewPaymentService(db, svc)
	period := seedScenario(t, svc)

	if err := svc.GeneratePeriod(period.PeriodID, false); err != nil {
		t.Fatal(err)
	}

	// Mimic a generation that ran before the level-2 derivation existed
	if err := db.Where("period_id = ? AND source_user_id = 3 AND level = 2", period.PeriodID).
		Delete(&models.Commission{}).Error; err != nil {
		t.Fatal(err)
	}

	payment, err := paySvc.SubmitPayment(3, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 40000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := paySvc.ConfirmPayment(payment.PaymentID, 99); err != nil {
		t.Fatal(err)
	}
	assertWallet(t, db, 2, 0, 20000)

	// Repair re-derives the missing 3→1 row after the payer already settled
	if err := svc.GenerateCommissions(period.PeriodID); err != nil {
		t.Fatal(err)
	}
	var repaired models.Commission
	if err := db.Where("period_id = ? AND source_user_id = 3 AND level = 2", period.PeriodID).
		First(&repaired).Error; err != nil {
		t.Fatal(err)
	}
	if repaired.FundingStatus != models.FundingPending || repaired.FundedAt != nil {
		t.Errorf("repaired commission = %+v, want PENDING with no funded_at", repaired)
	}

	// 2 clears their payable: funds 2→1 and unlocks 2's own 20000. The
	// repaired row stays out of every wallet movement.
	payment2, err := paySvc.SubmitPayment(2, &SubmitPaymentInput{
		PeriodID: &period.PeriodID, AmountCoins: 20000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := paySvc.ConfirmPayment(payment2.PaymentID, 99); err != nil {
		t.Fatal(err)
	}
	assertWallet(t, db, 2, 20000, 0)
	assertWallet(t, db, 1, 0, 10000)

	// Every funded coin for beneficiary 1 is backed by a locked-in ledger row
	var fundedCoins, creditedCoins int64
	db.Model(&models.Commission{}).
		Select("COALESCE(SUM(amount_coins), 0)").
		Where("period_id = ? AND beneficiary_user_id = 1 AND funding_status = ?", period.PeriodID, models.Funded).
		Scan(&fundedCoins)
	db.Model(&models.WalletLedger{}).
		Select("COALESCE(SUM(delta_locked_coins), 0)").
		Where("user_id = 1 AND entry_type = ?", models.EntryCommissionLockedIn).
		Scan(&creditedCoins)
	if fundedCoins != 10000 || fundedCoins != creditedCoins {
		t.Errorf("funded=%d credited=%d, want both 10000", fundedCoins, creditedCoins)
	}

	assertLedgerMatchesWallet(t, db, 1)
	assertLedgerMatchesWallet(t, db, 2)
}
