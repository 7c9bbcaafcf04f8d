package services

import (
	"errors"
	"log"
	"time"

	"account-settlement-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentService struct {
	DB         *gorm.DB
	Settlement *SettlementService
}

func NewPaymentService(db *gorm.DB, settlement *SettlementService) *PaymentService {
	return &PaymentService{DB: db, Settlement: settlement}
}

// SubmitPaymentInput is a user's payment claim
type SubmitPaymentInput struct {
	PeriodID    *int64 `json:"period_id"` // nil = current period
	AmountCoins int64  `json:"amount_coins"`
	Method      string `json:"method"`
	ProofURL    string `json:"proof_url"`
}

// SubmitPayment records a pending payment claim. Accepted only inside the
// period's pay window, only against an existing payable, and capped at the
// remaining due — overpay never reaches the confirmation stage.
func (s *PaymentService) SubmitPayment(userID int64, in *SubmitPaymentInput) (*models.Payment, error) {
	if in.AmountCoins <= 0 {
		return nil, ErrInvalidAmount
	}

	var period *models.SettlementPeriod
	var err error
	if in.PeriodID == nil {
		period, err = s.Settlement.CurrentPeriod()
	} else {
		period, err = s.Settlement.GetPeriod(*in.PeriodID)
	}
	if err != nil {
		return nil, err
	}

	if !period.InPayWindow(time.Now()) {
		return nil, ErrOutsidePayWindow
	}

	var payable models.UserPayable
	if err := s.DB.Where("period_id = ? AND user_id = ?", period.PeriodID, userID).
		First(&payable).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayableMissing
		}
		return nil, err
	}

	remaining := payable.RemainingCoins()
	if remaining <= 0 {
		return nil, ErrNothingRemaining
	}
	if in.AmountCoins > remaining {
		return nil, ErrOverRemaining
	}

	payment := models.Payment{
		PeriodID:    period.PeriodID,
		PayerUserID: userID,
		AmountCoins: in.AmountCoins,
		Method:      in.Method,
		ProofURL:    in.ProofURL,
		RefNo:       uuid.NewString(),
		Status:      models.PaymentPending,
	}
	if err := s.DB.Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ConfirmPayment applies a pending payment inside one transaction:
// mark confirmed, credit the payable, recompute its status, and — on the
// payer's first transition to PAID — fund their downstream-generated
// commissions into the beneficiaries' locked balances and immediately
// attempt unlocks for every touched beneficiary plus the payer themself.
//
// Lock order is payment → payable → commission rows (bulk, by filter) →
// wallet rows, the same order as every other money path.
func (s *PaymentService) ConfirmPayment(paymentID, adminUserID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "payment_id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if payment.Status != models.PaymentPending {
			return ErrPaymentNotPending
		}

		var payable models.UserPayable
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("period_id = ? AND user_id = ?", payment.PeriodID, payment.PayerUserID).
			First(&payable).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayableMissing
			}
			return err
		}

		var period models.SettlementPeriod
		if err := tx.First(&period, "period_id = ?", payment.PeriodID).Error; err != nil {
			return err
		}

		now := time.Now()
		prevStatus := payable.Status

		payment.Status = models.PaymentConfirmed
		payment.ConfirmedAt = &now
		payment.ConfirmedBy = &adminUserID
		payment.RejectReason = nil
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		payable.AmountPaidCoins += payment.AmountCoins
		if payable.FirstPaidAt == nil {
			payable.FirstPaidAt = &now
		}
		payable.Status = recomputePayableStatus(payable.AmountDueCoins, payable.AmountPaidCoins, now, period.PayEnd)
		if payable.Status == models.PayablePaid && payable.PaidAt == nil {
			payable.PaidAt = &now
		}
		if err := tx.Save(&payable).Error; err != nil {
			return err
		}

		// Funding cascade fires only on the first not-PAID → PAID transition
		// for this payer+period; later confirms (none should exist, the
		// submit cap prevents them) cannot double-fund.
		if prevStatus != models.PayablePaid && payable.Status == models.PayablePaid {
			if err := fundCommissions(tx, payment.PeriodID, payment.PayerUserID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// recomputePayableStatus derives the payable state after a confirmed credit.
// A non-positive due is immediately PAID (nothing was ever owed); a shortfall
// past the pay window is OVERDUE; otherwise PARTIAL once anything was paid.
func recomputePayableStatus(due, paid int64, today, payEnd time.Time) models.PayableStatus {
	switch {
	case due <= 0:
		return models.PayablePaid
	case paid >= due:
		return models.PayablePaid
	case models.DateOnly(today).After(models.DateOnly(payEnd)):
		return models.PayableOverdue
	case paid > 0:
		return models.PayablePartial
	default:
		return models.PayableUnpaid
	}
}

// fundCommissions stamps every still-pending commission sourced from this
// payer FUNDED, locks the stamped amounts into each beneficiary's wallet with
// one grouped ledger row apiece, then chains an unlock attempt for each
// beneficiary and for the payer. The ledger credits are derived from the rows
// the update stamped (funded_at = now), never from a pre-read: a commission
// row committed mid-flight by the repair derivation is either stamped and
// credited together or left pending.
func fundCommissions(tx *gorm.DB, periodID, sourceUserID int64, now time.Time) error {
	res := tx.Model(&models.Commission{}).
		Where("period_id = ? AND source_user_id = ? AND funding_status = ?",
			periodID, sourceUserID, models.FundingPending).
		Updates(map[string]interface{}{
			"funding_status": models.Funded,
			"funded_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}

	type beneficiarySum struct {
		BeneficiaryUserID int64
		SumCoins          int64
	}
	var sums []beneficiarySum
	if res.RowsAffected > 0 {
		if err := tx.Model(&models.Commission{}).
			Select("beneficiary_user_id, COALESCE(SUM(amount_coins), 0) AS sum_coins").
			Where("period_id = ? AND source_user_id = ? AND funding_status = ? AND funded_at = ?",
				periodID, sourceUserID, models.Funded, now).
			Group("beneficiary_user_id").Order("beneficiary_user_id").
			Scan(&sums).Error; err != nil {
			return err
		}

		for _, bs := range sums {
			if err := tx.Create(&models.WalletLedger{
				UserID:           bs.BeneficiaryUserID,
				PeriodID:         &periodID,
				EntryType:        models.EntryCommissionLockedIn,
				DeltaLockedCoins: bs.SumCoins,
				RefSourceUserID:  &sourceUserID,
				Remark:           "downline paid",
			}).Error; err != nil {
				return err
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"locked_coins": gorm.Expr("wallet_accounts.locked_coins + EXCLUDED.locked_coins"),
				}),
			}).Create(&models.WalletAccount{
				UserID:      bs.BeneficiaryUserID,
				LockedCoins: bs.SumCoins,
			}).Error; err != nil {
				return err
			}
		}

		log.Printf("[Settlement] Funded commissions: period=%d source=%d beneficiaries=%d",
			periodID, sourceUserID, len(sums))
	}

	// Immediate unlock attempts: beneficiaries whose own payable is already
	// PAID can spend right away, and the payer may have funded-but-locked
	// commissions of their own now that they are clear.
	for _, bs := range sums {
		if _, err := unlockForBeneficiary(tx, periodID, bs.BeneficiaryUserID, now); err != nil {
			return err
		}
	}
	if _, err := unlockForBeneficiary(tx, periodID, sourceUserID, now); err != nil {
		return err
	}
	return nil
}

// RejectPayment marks a pending payment rejected with a reason. The amount
// was never applied, so there are no payable or wallet side effects.
func (s *PaymentService) RejectPayment(paymentID, adminUserID int64, reason string) (*models.Payment, error) {
	var payment models.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "payment_id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if payment.Status != models.PaymentPending {
			return ErrPaymentNotPending
		}

		now := time.Now()
		payment.Status = models.PaymentRejected
		payment.ConfirmedAt = &now
		payment.ConfirmedBy = &adminUserID
		payment.RejectReason = &reason
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPayments returns payment records, newest first. userID 0 lists all
// users (admin view); period and status filters are optional.
func (s *PaymentService) ListPayments(userID int64, periodID *int64, status *models.PaymentStatus) ([]models.Payment, error) {
	query := s.DB.Model(&models.Payment{})
	if userID != 0 {
		query = query.Where("payer_user_id = ?", userID)
	}
	if periodID != nil {
		query = query.Where("period_id = ?", *periodID)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var payments []models.Payment
	err := query.Order("payment_id DESC").Find(&payments).Error
	return payments, err
}
