package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Believetim-cloud/SkyRiff/internal/config"
	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/metrics"
	"github.com/Believetim-cloud/SkyRiff/internal/payment"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

// PaymentEngine is the slice of the payment engine the buy flow needs.
type PaymentEngine interface {
	Purchase(ctx context.Context, userID int64, productID int, channel string) (*payment.Payment, error)
}

type Service struct {
	repo     Store
	payments PaymentEngine
	ledger   wallet.Ledger
	tariff   config.Tariff

	now func() time.Time
}

func NewService(repo Store, payments PaymentEngine, ledger wallet.Ledger, tariff config.Tariff) *Service {
	return &Service{
		repo:     repo,
		payments: payments,
		ledger:   ledger,
		tariff:   tariff,
		now:      time.Now,
	}
}

type BuyResult struct {
	Payment      *payment.Payment `json:"payment"`
	Subscription *Subscription    `json:"subscription"`
}

// Buy purchases the monthly card. An active card gets its end date
// extended by the card duration; otherwise a new card starts now. Over
// a non-mock channel the payment stays pending and no card is granted
// until the channel callback settles it.
func (s *Service) Buy(ctx context.Context, userID int64, channel string) (*BuyResult, error) {
	p, err := s.payments.Purchase(ctx, userID, payment.SubscriptionProductID, channel)
	if err != nil {
		return nil, err
	}
	if p.Status != payment.StatusSuccess {
		return &BuyResult{Payment: p}, nil
	}

	sub, err := s.grant(ctx, userID, p.PaymentID)
	if err != nil {
		logger.Errorf("CRITICAL: payment %d settled but subscription grant for user %d failed: %v", p.PaymentID, userID, err)
		return nil, err
	}

	logger.Infof("Subscription %d active for user %d until %s", sub.SubscriptionID, userID, sub.EndAt.Format(time.RFC3339))
	return &BuyResult{Payment: p, Subscription: sub}, nil
}

func (s *Service) grant(ctx context.Context, userID, paymentID int64) (*Subscription, error) {
	now := s.now()
	days := s.tariff.SubscriptionDays

	existing, err := s.repo.GetActive(ctx, userID, now)
	switch {
	case err == nil:
		return s.repo.Extend(ctx, existing.SubscriptionID, existing.EndAt.AddDate(0, 0, days))
	case errors.Is(err, ErrNoActive):
		return s.repo.Create(ctx, userID, &paymentID, now, now.AddDate(0, 0, days))
	default:
		return nil, err
	}
}

// ClaimDaily grants the day's subscription credits. The claim row is
// inserted before the credit moves so that concurrent claims race on
// the unique index; a lost race surfaces as ErrAlreadyClaimed with no
// wallet effect.
func (s *Service) ClaimDaily(ctx context.Context, userID int64) (*DailyRewardClaim, error) {
	now := s.now()

	sub, err := s.repo.GetActive(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	claim := &DailyRewardClaim{
		UserID:         userID,
		SubscriptionID: sub.SubscriptionID,
		ClaimDate:      claimDay(now),
		CreditsAmount:  s.tariff.DailyCredits,
	}
	if err := s.repo.CreateClaim(ctx, claim); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			metrics.RecordDailyClaim("duplicate")
		}
		return nil, err
	}

	desc := fmt.Sprintf("Daily subscription reward: %d credits", claim.CreditsAmount)
	ref := &wallet.Ref{Type: wallet.RefSubscription, ID: sub.SubscriptionID}
	if _, err := s.ledger.CreditCredits(ctx, userID, claim.CreditsAmount, wallet.TypeSubscriptionDaily, ref, desc); err != nil {
		// Reverse the claim row so the grant can be retried today.
		if delErr := s.repo.DeleteClaim(ctx, claim.ClaimID); delErr != nil {
			logger.Errorf("CRITICAL: claim %d has no credit grant and could not be reversed: %v", claim.ClaimID, delErr)
		}
		return nil, err
	}

	metrics.RecordDailyClaim("granted")
	logger.Infof("User %d claimed %d daily credits on subscription %d", userID, claim.CreditsAmount, sub.SubscriptionID)
	return claim, nil
}

// MyStatus reports the active card, days remaining and whether today's
// credits were claimed. No active card yields an empty status, not an
// error.
func (s *Service) MyStatus(ctx context.Context, userID int64) (*Status, error) {
	now := s.now()

	sub, err := s.repo.GetActive(ctx, userID, now)
	if errors.Is(err, ErrNoActive) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, err
	}

	claimed, err := s.repo.HasClaim(ctx, userID, claimDay(now))
	if err != nil {
		return nil, err
	}

	return &Status{
		Subscription:  sub,
		DaysRemaining: int(sub.EndAt.Sub(now).Hours() / 24),
		TodayClaimed:  claimed,
	}, nil
}

func claimDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
