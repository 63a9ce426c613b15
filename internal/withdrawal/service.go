package withdrawal

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Believetim-cloud/SkyRiff/internal/config"
	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/metrics"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

var (
	ErrBelowMinimum  = errors.New("withdrawal amount below minimum")
	ErrInvalidAmount = errors.New("withdrawal amount must be positive")
)

type Service struct {
	repo   Store
	ledger wallet.Ledger
	tariff config.Tariff
}

func NewService(repo Store, ledger wallet.Ledger, tariff config.Tariff) *Service {
	return &Service{repo: repo, ledger: ledger, tariff: tariff}
}

type CreateRequest struct {
	AmountCNY   decimal.Decimal `json:"amount_cny" binding:"required"`
	Method      string          `json:"method" binding:"required,oneof=alipay wechat bank"`
	AccountInfo string          `json:"account_info" binding:"required,max=500"`
}

// Create debits the available coin balance 1:1 and files the request
// in applied state. The minimum check runs first, before any ledger
// mutation.
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*Withdrawal, error) {
	if !req.AmountCNY.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.AmountCNY.LessThan(s.tariff.MinWithdrawalYuan) {
		return nil, ErrBelowMinimum
	}

	desc := fmt.Sprintf("Withdrawal of %s yuan", req.AmountCNY)
	if _, err := s.ledger.DebitCoinsAvailable(ctx, userID, req.AmountCNY, wallet.TypeWithdraw, nil, desc); err != nil {
		return nil, err
	}

	w := &Withdrawal{
		UserID:      userID,
		AmountCNY:   req.AmountCNY,
		AmountCoins: req.AmountCNY,
		Method:      req.Method,
		AccountInfo: req.AccountInfo,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		// Reverse the debit so the failed application leaves no hold.
		if _, refundErr := s.ledger.CreditCoinsAvailable(ctx, userID, req.AmountCNY, wallet.TypeWithdrawRefund, nil, "Refund for failed withdrawal application"); refundErr != nil {
			logger.Errorf("CRITICAL: withdrawal application refund for user %d failed: %v", userID, refundErr)
		}
		return nil, err
	}

	metrics.RecordWithdrawal(StatusApplied)
	logger.Infof("Withdrawal %d applied by user %d for %s yuan", w.WithdrawalID, userID, req.AmountCNY)
	return w, nil
}

func (s *Service) Get(ctx context.Context, withdrawalID, userID int64) (*Withdrawal, error) {
	w, err := s.repo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, ErrNotFound
	}
	return w, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Withdrawal, error) {
	return s.repo.ListByUser(ctx, userID, limit, cursor)
}

func (s *Service) ListApplied(ctx context.Context, limit int, cursor int64) ([]Withdrawal, error) {
	return s.repo.ListByStatus(ctx, StatusApplied, limit, cursor)
}

// Approve is a pure status transition; the money already left the
// coin wallet at application time.
func (s *Service) Approve(ctx context.Context, withdrawalID int64, adminNote *string) (*Withdrawal, error) {
	moved, err := s.repo.Transition(ctx, withdrawalID, StatusApproved, nil, adminNote)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrNotProcessable
	}

	metrics.RecordWithdrawal(StatusApproved)
	return s.repo.GetByID(ctx, withdrawalID)
}

// Reject compensates the original debit with a withdraw_refund credit.
// The status guard on the transition makes the refund exactly-once.
func (s *Service) Reject(ctx context.Context, withdrawalID int64, reason string, adminNote *string) (*Withdrawal, error) {
	w, err := s.repo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}

	moved, err := s.repo.Transition(ctx, withdrawalID, StatusRejected, &reason, adminNote)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrNotProcessable
	}

	ref := &wallet.Ref{Type: wallet.RefWithdrawal, ID: withdrawalID}
	desc := fmt.Sprintf("Refund for rejected withdrawal #%d", withdrawalID)
	if _, err := s.ledger.CreditCoinsAvailable(ctx, w.UserID, w.AmountCoins, wallet.TypeWithdrawRefund, ref, desc); err != nil {
		logger.Errorf("CRITICAL: refund for rejected withdrawal %d failed: %v", withdrawalID, err)
		return nil, err
	}

	metrics.RecordWithdrawal(StatusRejected)
	logger.Infof("Withdrawal %d rejected, %s coins refunded to user %d", withdrawalID, w.AmountCoins, w.UserID)
	return s.repo.GetByID(ctx, withdrawalID)
}

// Cancel lets the applicant withdraw their own request while it is
// still in applied state. Like Reject it compensates the original
// debit, with the same exactly-once guard on the transition.
func (s *Service) Cancel(ctx context.Context, withdrawalID, userID int64) (*Withdrawal, error) {
	w, err := s.repo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, ErrNotFound
	}

	moved, err := s.repo.Transition(ctx, withdrawalID, StatusCancelled, nil, nil)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrNotProcessable
	}

	ref := &wallet.Ref{Type: wallet.RefWithdrawal, ID: withdrawalID}
	desc := fmt.Sprintf("Refund for cancelled withdrawal #%d", withdrawalID)
	if _, err := s.ledger.CreditCoinsAvailable(ctx, w.UserID, w.AmountCoins, wallet.TypeWithdrawRefund, ref, desc); err != nil {
		logger.Errorf("CRITICAL: refund for cancelled withdrawal %d failed: %v", withdrawalID, err)
		return nil, err
	}

	metrics.RecordWithdrawal(StatusCancelled)
	logger.Infof("Withdrawal %d cancelled, %s coins refunded to user %d", withdrawalID, w.AmountCoins, w.UserID)
	return s.repo.GetByID(ctx, withdrawalID)
}

// Pay finalizes after the actual payout. No ledger effect.
func (s *Service) Pay(ctx context.Context, withdrawalID int64, adminNote *string) (*Withdrawal, error) {
	moved, err := s.repo.MarkPaid(ctx, withdrawalID, adminNote)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrNotProcessable
	}

	metrics.RecordWithdrawal(StatusPaid)
	return s.repo.GetByID(ctx, withdrawalID)
}
