package services

import (
	"errors"
	"testing"

	"account-settlement-system/models"
)

func TestWithdrawApplyAndCancel(t *testing.T) {
	db := testDB(t)
	svc := NewWithdrawalService(db)

	seedUser(t, db, 5, "holder")
	if err := db.Create(&models.WalletAccount{UserID: 5, AvailableCoins: 10000}).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Apply(5, 15000, "alipay", "acct"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("over-balance apply: got %v, want ErrInsufficientBalance", err)
	}
	if _, err := svc.Apply(5, 0, "alipay", "acct"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero apply: got %v, want ErrInvalidAmount", err)
	}

	req, err := svc.Apply(5, 4000, "alipay", "acct")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if req.Status != models.WithdrawPending {
		t.Errorf("new request status = %d, want PENDING", req.Status)
	}
	assertWallet(t, db, 5, 6000, 0)

	var applyRow models.WalletLedger
	if err := db.Where("user_id = 5 AND entry_type = ?", models.EntryWithdrawApply).
		First(&applyRow).Error; err != nil {
		t.Fatalf("apply ledger row: %v", err)
	}
	if applyRow.DeltaAvailableCoins != -4000 {
		t.Errorf("apply ledger delta = %d, want -4000", applyRow.DeltaAvailableCoins)
	}

	// Only the owner may cancel
	if _, err := svc.Cancel(req.WithdrawID, 6); !errors.Is(err, ErrWithdrawNotFound) {
		t.Errorf("cancel by stranger: got %v, want ErrWithdrawNotFound", err)
	}

	canceled, err := svc.Cancel(req.WithdrawID, 5)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != models.WithdrawCanceled {
		t.Errorf("canceled status = %d", canceled.Status)
	}
	assertWallet(t, db, 5, 10000, 0)

	if _, err := svc.Cancel(req.WithdrawID, 5); !errors.Is(err, ErrWithdrawNotPending) {
		t.Errorf("double cancel: got %v, want ErrWithdrawNotPending", err)
	}
}

func TestWithdrawApprovePayReject(t *testing.T) {
	db := testDB(t)
	svc := NewWithdrawalService(db)

	seedUser(t, db, 5, "holder")
	if err := db.Create(&models.WalletAccount{UserID: 5, AvailableCoins: 10000}).Error; err != nil {
		t.Fatal(err)
	}

	req, err := svc.Apply(5, 3000, "alipay", "acct")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(req.WithdrawID, 99); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Approve(req.WithdrawID, 99); !errors.Is(err, ErrWithdrawNotPending) {
		t.Errorf("double approve: got %v, want ErrWithdrawNotPending", err)
	}

	paid, err := svc.MarkPaid(req.WithdrawID, 99)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != models.WithdrawPaidOut {
		t.Errorf("paid status = %d", paid.Status)
	}
	// Balance moved at apply time; payout appends an audit row with no deltas
	assertWallet(t, db, 5, 7000, 0)
	var auditRow models.WalletLedger
	if err := db.Where("user_id = 5 AND entry_type = ?", models.EntryWithdrawPaid).
		First(&auditRow).Error; err != nil {
		t.Fatalf("audit ledger row: %v", err)
	}
	if auditRow.DeltaAvailableCoins != 0 || auditRow.DeltaLockedCoins != 0 {
		t.Errorf("audit row has deltas: %+v", auditRow)
	}

	if _, err := svc.MarkPaid(req.WithdrawID, 99); !errors.Is(err, ErrWithdrawFinished) {
		t.Errorf("pay after paid: got %v, want ErrWithdrawFinished", err)
	}

	// Reject refunds, even after approval
	req2, err := svc.Apply(5, 2000, "alipay", "acct")
	if err != nil {
		t.Fatal(err)
	}
	assertWallet(t, db, 5, 5000, 0)
	rejected, err := svc.Reject(req2.WithdrawID, 99, "account info mismatch")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.WithdrawRejected || rejected.RejectReason == nil {
		t.Errorf("rejected request = %+v", rejected)
	}
	assertWallet(t, db, 5, 7000, 0)
}
