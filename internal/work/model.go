package work

import (
	"time"

	"github.com/shopspring/decimal"
)

// Work is a published video with a monetizable prompt.
type Work struct {
	WorkID            int64           `db:"work_id" json:"work_id"`
	UserID            int64           `db:"user_id" json:"user_id"`
	VideoID           int64           `db:"video_id" json:"video_id"`
	Title             *string         `db:"title" json:"title,omitempty"`
	Description       *string         `db:"description" json:"description,omitempty"`
	Prompt            string          `db:"prompt" json:"-"`
	IsPromptPublic    bool            `db:"is_prompt_public" json:"is_prompt_public"`
	PromptUnlockCost  int             `db:"prompt_unlock_cost" json:"prompt_unlock_cost"`
	AllowRemix        bool            `db:"allow_remix" json:"allow_remix"`
	Status            string          `db:"status" json:"status"`
	ViewCount         int             `db:"view_count" json:"view_count"`
	TipCount          int             `db:"tip_count" json:"tip_count"`
	PromptUnlockCount int             `db:"prompt_unlock_count" json:"prompt_unlock_count"`
	TotalTipIncome    decimal.Decimal `db:"total_tip_income" json:"total_tip_income"`
	TotalPromptIncome decimal.Decimal `db:"total_prompt_income" json:"total_prompt_income"`
	PublishedAt       time.Time       `db:"published_at" json:"published_at"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// Tip is an immutable receipt of one tip and the fee split computed
// at that moment. Never recomputed, even if fee rates change.
type Tip struct {
	TipID         int64           `db:"tip_id" json:"tip_id"`
	WorkID        int64           `db:"work_id" json:"work_id"`
	CreatorUserID int64           `db:"creator_user_id" json:"creator_user_id"`
	TipperUserID  int64           `db:"tipper_user_id" json:"-"`
	AmountCredits int             `db:"amount_credits" json:"amount_credits"`
	AmountCoins   decimal.Decimal `db:"amount_coins" json:"amount_coins"`
	PlatformFee   decimal.Decimal `db:"platform_fee" json:"platform_fee"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// PromptUnlock is an immutable receipt of one paid prompt unlock,
// unique per (work, unlocking user).
type PromptUnlock struct {
	UnlockID        int64           `db:"unlock_id" json:"unlock_id"`
	WorkID          int64           `db:"work_id" json:"work_id"`
	CreatorUserID   int64           `db:"creator_user_id" json:"creator_user_id"`
	UnlockingUserID int64           `db:"unlocking_user_id" json:"-"`
	CostCredits     int             `db:"cost_credits" json:"cost_credits"`
	IncomeCoins     decimal.Decimal `db:"income_coins" json:"income_coins"`
	PlatformFee     decimal.Decimal `db:"platform_fee" json:"platform_fee"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// UnlockResult is what unlockers get back. AlreadyUnlocked covers
// every free path: prior unlock, public prompt, own work.
type UnlockResult struct {
	Prompt          string `json:"prompt"`
	AlreadyUnlocked bool   `json:"already_unlocked"`
}
