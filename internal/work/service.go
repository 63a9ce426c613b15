package work

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Believetim-cloud/SkyRiff/internal/config"
	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/metrics"
	"github.com/Believetim-cloud/SkyRiff/internal/task"
	"github.com/Believetim-cloud/SkyRiff/internal/video"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

var (
	ErrInvalidTipAmount = errors.New("tip amount not in allowed tiers")
	ErrSelfInteraction  = errors.New("cannot tip or unlock your own work")
	ErrMissingPrompt    = errors.New("video has no generation prompt")
)

type Service struct {
	repo      Store
	videoRepo video.Store
	taskRepo  task.Store
	ledger    wallet.Ledger
	tariff    config.Tariff
	now       func() time.Time
}

func NewService(repo Store, videoRepo video.Store, taskRepo task.Store, ledger wallet.Ledger, tariff config.Tariff) *Service {
	return &Service{
		repo:      repo,
		videoRepo: videoRepo,
		taskRepo:  taskRepo,
		ledger:    ledger,
		tariff:    tariff,
		now:       time.Now,
	}
}

type PublishRequest struct {
	VideoID          int64   `json:"video_id" binding:"required"`
	Title            *string `json:"title" binding:"omitempty,max=200"`
	Description      *string `json:"description" binding:"omitempty,max=2000"`
	IsPromptPublic   bool    `json:"is_prompt_public"`
	PromptUnlockCost int     `json:"prompt_unlock_cost" binding:"omitempty,min=1,max=1000"`
	AllowRemix       *bool   `json:"allow_remix"`
}

// Publish turns an owned video asset into a community work, carrying
// the generation prompt over from the originating task.
func (s *Service) Publish(ctx context.Context, userID int64, req PublishRequest) (*Work, error) {
	asset, err := s.videoRepo.GetByID(ctx, req.VideoID, userID)
	if err != nil {
		return nil, err
	}
	if asset.TaskID == nil {
		return nil, ErrMissingPrompt
	}

	t, err := s.taskRepo.GetByID(ctx, *asset.TaskID, userID)
	if err != nil {
		return nil, ErrMissingPrompt
	}

	unlockCost := req.PromptUnlockCost
	if unlockCost == 0 {
		unlockCost = s.tariff.DefaultUnlockCost
	}
	allowRemix := true
	if req.AllowRemix != nil {
		allowRemix = *req.AllowRemix
	}

	w := &Work{
		UserID:           userID,
		VideoID:          req.VideoID,
		Title:            req.Title,
		Description:      req.Description,
		Prompt:           t.Prompt,
		IsPromptPublic:   req.IsPromptPublic,
		PromptUnlockCost: unlockCost,
		AllowRemix:       allowRemix,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}

	logger.Infof("Work %d published by user %d (video %d)", w.WorkID, userID, req.VideoID)
	return w, nil
}

func (s *Service) Get(ctx context.Context, workID int64) (*Work, error) {
	w, err := s.repo.GetByID(ctx, workID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViewCount(ctx, workID); err != nil {
		logger.Warnf("Failed to bump view count for work %d: %v", workID, err)
	}
	return w, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Work, error) {
	return s.repo.ListByUser(ctx, userID, limit, cursor)
}

func (s *Service) ListTips(ctx context.Context, workID int64, limit int, cursor int64) ([]Tip, error) {
	return s.repo.ListTips(ctx, workID, limit, cursor)
}

// feeSplit converts a credit amount to yuan-denominated coins and
// splits off the platform fee.
func (s *Service) feeSplit(credits int, feeRate decimal.Decimal) (income, fee decimal.Decimal) {
	yuan := decimal.NewFromInt(int64(credits)).Mul(s.tariff.CreditToYuan)
	fee = yuan.Mul(feeRate)
	income = yuan.Sub(fee)
	return income, fee
}

// Tip charges the tipper and credits the creator's pending coins with
// the post-fee amount, frozen for the configured number of days. The
// payer debit happens first; if the creator credit then fails, the
// debit is compensated with a tip_refund so no money is ever lost in
// between.
func (s *Service) Tip(ctx context.Context, workID, tipperID int64, amountCredits int) (*Tip, error) {
	if !s.tariff.ValidTipAmount(amountCredits) {
		return nil, ErrInvalidTipAmount
	}

	w, err := s.repo.GetByID(ctx, workID)
	if err != nil {
		return nil, err
	}
	if w.UserID == tipperID {
		return nil, ErrSelfInteraction
	}

	ref := &wallet.Ref{Type: wallet.RefWork, ID: workID}
	spendDesc := fmt.Sprintf("Tip for work #%d", workID)
	if _, err := s.ledger.DebitCredits(ctx, tipperID, amountCredits, wallet.TypeTipSpend, ref, spendDesc); err != nil {
		return nil, err
	}

	income, fee := s.feeSplit(amountCredits, s.tariff.TipFeeRate)
	unlockAt := s.now().AddDate(0, 0, s.tariff.FreezeDays)
	incomeDesc := fmt.Sprintf("Tip income (%d credits)", amountCredits)
	if _, err := s.ledger.CreditCoinsPending(ctx, w.UserID, income, &tipperID, wallet.TypeCreatorTipIncome, ref, unlockAt, incomeDesc); err != nil {
		refundDesc := fmt.Sprintf("Refund for failed tip on work #%d", workID)
		if _, refundErr := s.ledger.CreditCredits(ctx, tipperID, amountCredits, wallet.TypeTipRefund, ref, refundDesc); refundErr != nil {
			logger.Errorf("CRITICAL: tip compensation for user %d on work %d failed: %v", tipperID, workID, refundErr)
		}
		return nil, fmt.Errorf("failed to credit creator: %w", err)
	}

	tip := &Tip{
		WorkID:        workID,
		CreatorUserID: w.UserID,
		TipperUserID:  tipperID,
		AmountCredits: amountCredits,
		AmountCoins:   income,
		PlatformFee:   fee,
	}
	if err := s.repo.CreateTip(ctx, tip); err != nil {
		// Both ledger legs already committed; the receipt is the only
		// missing piece and needs operator reconciliation.
		logger.Errorf("CRITICAL: tip receipt for work %d tipper %d failed after ledger commit: %v", workID, tipperID, err)
		return nil, err
	}

	metrics.TipsTotal.Inc()
	logger.Infof("User %d tipped work %d: %d credits, creator income %s coins", tipperID, workID, amountCredits, income)
	return tip, nil
}

// UnlockPrompt is idempotent per (work, unlocker). A prior unlock, a
// public prompt or owning the work short-circuit to a free result.
// The receipt insert is the uniqueness gate, so it runs between the
// payer debit and the creator credit: a concurrent loser is refunded
// before any creator money moves.
func (s *Service) UnlockPrompt(ctx context.Context, workID, userID int64) (*UnlockResult, error) {
	w, err := s.repo.GetByID(ctx, workID)
	if err != nil {
		return nil, err
	}

	if w.UserID == userID || w.IsPromptPublic {
		return &UnlockResult{Prompt: w.Prompt, AlreadyUnlocked: true}, nil
	}

	unlocked, err := s.repo.HasUnlock(ctx, workID, userID)
	if err != nil {
		return nil, err
	}
	if unlocked {
		metrics.RecordPromptUnlock("duplicate")
		return &UnlockResult{Prompt: w.Prompt, AlreadyUnlocked: true}, nil
	}

	cost := w.PromptUnlockCost
	ref := &wallet.Ref{Type: wallet.RefWork, ID: workID}
	spendDesc := fmt.Sprintf("Prompt unlock for work #%d", workID)
	if _, err := s.ledger.DebitCredits(ctx, userID, cost, wallet.TypePromptUnlockSpend, ref, spendDesc); err != nil {
		return nil, err
	}

	income, fee := s.feeSplit(cost, s.tariff.PromptFeeRate)
	unlock := &PromptUnlock{
		WorkID:          workID,
		CreatorUserID:   w.UserID,
		UnlockingUserID: userID,
		CostCredits:     cost,
		IncomeCoins:     income,
		PlatformFee:     fee,
	}
	if err := s.repo.CreatePromptUnlock(ctx, unlock); err != nil {
		refundDesc := fmt.Sprintf("Refund for duplicate unlock of work #%d", workID)
		if errors.Is(err, ErrAlreadyUnlocked) {
			// Lost the race to a concurrent unlock. Undo the debit and
			// report success.
			if _, refundErr := s.ledger.CreditCredits(ctx, userID, cost, wallet.TypePromptRefund, ref, refundDesc); refundErr != nil {
				logger.Errorf("CRITICAL: duplicate-unlock refund for user %d on work %d failed: %v", userID, workID, refundErr)
			}
			metrics.RecordPromptUnlock("duplicate")
			return &UnlockResult{Prompt: w.Prompt, AlreadyUnlocked: true}, nil
		}
		refundDesc = fmt.Sprintf("Refund for failed unlock of work #%d", workID)
		if _, refundErr := s.ledger.CreditCredits(ctx, userID, cost, wallet.TypePromptRefund, ref, refundDesc); refundErr != nil {
			logger.Errorf("CRITICAL: unlock compensation for user %d on work %d failed: %v", userID, workID, refundErr)
		}
		return nil, err
	}

	unlockAt := s.now().AddDate(0, 0, s.tariff.FreezeDays)
	incomeDesc := fmt.Sprintf("Prompt unlock income (%d credits)", cost)
	if _, err := s.ledger.CreditCoinsPending(ctx, w.UserID, income, &userID, wallet.TypeCreatorPromptIncome, ref, unlockAt, incomeDesc); err != nil {
		refundDesc := fmt.Sprintf("Refund for failed unlock of work #%d", workID)
		if _, refundErr := s.ledger.CreditCredits(ctx, userID, cost, wallet.TypePromptRefund, ref, refundDesc); refundErr != nil {
			logger.Errorf("CRITICAL: unlock compensation for user %d on work %d failed: %v", userID, workID, refundErr)
		}
		logger.Errorf("CRITICAL: unlock receipt %d exists without creator income: %v", unlock.UnlockID, err)
		return nil, fmt.Errorf("failed to credit creator: %w", err)
	}

	metrics.RecordPromptUnlock("paid")
	logger.Infof("User %d unlocked prompt of work %d for %d credits", userID, workID, cost)
	return &UnlockResult{Prompt: w.Prompt, AlreadyUnlocked: false}, nil
}
