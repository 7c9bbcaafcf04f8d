package services

import (
	"errors"
	"fmt"
	"time"

	"account-settlement-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithdrawalService spends wallet balance. It only ever moves
// available_coins — locked commission money is untouchable until the unlock
// engine releases it — and follows the same ledger-append discipline as the
// settlement core.
type WithdrawalService struct {
	DB *gorm.DB
}

func NewWithdrawalService(db *gorm.DB) *WithdrawalService {
	return &WithdrawalService{DB: db}
}

// Apply debits available balance immediately and opens a pending request
func (s *WithdrawalService) Apply(userID, amountCoins int64, method, accountInfo string) (*models.WithdrawRequest, error) {
	if amountCoins <= 0 {
		return nil, ErrInvalidAmount
	}

	var req models.WithdrawRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		wallet, err := getWalletForUpdate(tx, userID)
		if err != nil {
			return err
		}
		if wallet.AvailableCoins < amountCoins {
			return ErrInsufficientBalance
		}

		if err := tx.Model(&models.WalletAccount{}).
			Where("user_id = ?", userID).
			Update("available_coins", gorm.Expr("available_coins - ?", amountCoins)).Error; err != nil {
			return err
		}

		req = models.WithdrawRequest{
			UserID:      userID,
			AmountCoins: amountCoins,
			Method:      method,
			AccountInfo: accountInfo,
			Status:      models.WithdrawPending,
			RequestedAt: time.Now(),
		}
		if err := tx.Create(&req).Error; err != nil {
			return err
		}

		return tx.Create(&models.WalletLedger{
			UserID:              userID,
			EntryType:           models.EntryWithdrawApply,
			DeltaAvailableCoins: -amountCoins,
			Remark:              fmt.Sprintf("withdraw apply #%d", req.WithdrawID),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Cancel lets the owner abort a still-pending request and refunds the amount
func (s *WithdrawalService) Cancel(withdrawID, userID int64) (*models.WithdrawRequest, error) {
	var req models.WithdrawRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&req, "withdraw_id = ?", withdrawID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawNotFound
			}
			return err
		}
		if req.UserID != userID {
			return ErrWithdrawNotFound
		}
		if req.Status != models.WithdrawPending {
			return ErrWithdrawNotPending
		}

		now := time.Now()
		req.Status = models.WithdrawCanceled
		req.ProcessedAt = &now
		if err := tx.Save(&req).Error; err != nil {
			return err
		}
		return refundWithdraw(tx, &req, "withdraw canceled")
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Approve marks a pending request as reviewed; the payout itself is manual
func (s *WithdrawalService) Approve(withdrawID, adminUserID int64) (*models.WithdrawRequest, error) {
	var req models.WithdrawRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&req, "withdraw_id = ?", withdrawID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawNotFound
			}
			return err
		}
		if req.Status != models.WithdrawPending {
			return ErrWithdrawNotPending
		}

		now := time.Now()
		req.Status = models.WithdrawApproved
		req.ProcessedAt = &now
		req.ProcessedBy = &adminUserID
		req.RejectReason = nil
		return tx.Save(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// MarkPaid records that the payout left the platform. Balance already moved
// at apply time, so this appends a zero-delta audit row only.
func (s *WithdrawalService) MarkPaid(withdrawID, adminUserID int64) (*models.WithdrawRequest, error) {
	var req models.WithdrawRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&req, "withdraw_id = ?", withdrawID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawNotFound
			}
			return err
		}
		if req.Status == models.WithdrawPaidOut || req.Status == models.WithdrawRejected || req.Status == models.WithdrawCanceled {
			return ErrWithdrawFinished
		}

		now := time.Now()
		req.Status = models.WithdrawPaidOut
		req.ProcessedAt = &now
		req.ProcessedBy = &adminUserID
		req.RejectReason = nil
		if err := tx.Save(&req).Error; err != nil {
			return err
		}

		return tx.Create(&models.WalletLedger{
			UserID:    req.UserID,
			EntryType: models.EntryWithdrawPaid,
			Remark:    fmt.Sprintf("withdraw paid #%d", req.WithdrawID),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Reject refuses a request and refunds the debited amount
func (s *WithdrawalService) Reject(withdrawID, adminUserID int64, reason string) (*models.WithdrawRequest, error) {
	var req models.WithdrawRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&req, "withdraw_id = ?", withdrawID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawNotFound
			}
			return err
		}
		if req.Status == models.WithdrawPaidOut || req.Status == models.WithdrawRejected || req.Status == models.WithdrawCanceled {
			return ErrWithdrawFinished
		}

		now := time.Now()
		req.Status = models.WithdrawRejected
		req.ProcessedAt = &now
		req.ProcessedBy = &adminUserID
		req.RejectReason = &reason
		if err := tx.Save(&req).Error; err != nil {
			return err
		}
		return refundWithdraw(tx, &req, "withdraw rejected")
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// refundWithdraw returns a request's amount to available balance with a
// matching ledger row. Caller holds the request row lock.
func refundWithdraw(tx *gorm.DB, req *models.WithdrawRequest, remark string) error {
	if _, err := getWalletForUpdate(tx, req.UserID); err != nil {
		return err
	}
	if err := tx.Model(&models.WalletAccount{}).
		Where("user_id = ?", req.UserID).
		Update("available_coins", gorm.Expr("available_coins + ?", req.AmountCoins)).Error; err != nil {
		return err
	}
	return tx.Create(&models.WalletLedger{
		UserID:              req.UserID,
		EntryType:           models.EntryWithdrawRefund,
		DeltaAvailableCoins: req.AmountCoins,
		Remark:              fmt.Sprintf("%s #%d", remark, req.WithdrawID),
	}).Error
}

// ListForUser returns a user's own requests, newest first
func (s *WithdrawalService) ListForUser(userID int64, limit int) ([]models.WithdrawRequest, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var reqs []models.WithdrawRequest
	err := s.DB.Where("user_id = ?", userID).
		Order("withdraw_id DESC").Limit(limit).Find(&reqs).Error
	return reqs, err
}

// ListAll is the admin view with optional status/user filters
func (s *WithdrawalService) ListAll(status *models.WithdrawStatus, userID *int64, limit int) ([]models.WithdrawRequest, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	query := s.DB.Model(&models.WithdrawRequest{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var reqs []models.WithdrawRequest
	err := query.Order("withdraw_id DESC").Limit(limit).Find(&reqs).Error
	return reqs, err
}
