package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry types. Every balance mutation records one of these.
const (
	TypeRecharge            = "recharge"
	TypeGenHold             = "gen_hold"
	TypeGenRefund           = "gen_refund"
	TypeDownloadSpend       = "download_spend"
	TypeTipSpend            = "tip_spend"
	TypeTipRefund           = "tip_refund"
	TypePromptUnlockSpend   = "prompt_unlock_spend"
	TypePromptRefund        = "prompt_unlock_refund"
	TypeSubscriptionDaily   = "subscription_daily"
	TypeCreatorTipIncome    = "creator_tip_income"
	TypeCreatorPromptIncome = "creator_prompt_income"
	TypeWithdraw            = "withdraw"
	TypeWithdrawRefund      = "withdraw_refund"
	TypePromoterCommission  = "promoter_commission"
)

// Coin/commission ledger row statuses.
const (
	StatusPending = "pending"
	StatusSettled = "settled"
)

// Ref is a typed back-reference to the entity that caused a mutation.
const (
	RefTask         = "task"
	RefVideo        = "video"
	RefWork         = "work"
	RefPayment      = "payment"
	RefSubscription = "subscription"
	RefWithdrawal   = "withdrawal"
)

type Ref struct {
	Type string
	ID   int64
}

// CreditWallet holds the spend currency. Integer credits, no freeze.
type CreditWallet struct {
	UserID         int64     `db:"user_id" json:"user_id"`
	BalanceCredits int       `db:"balance_credits" json:"balance_credits"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CoinWallet holds creator income in platform coins. Income arrives
// frozen in pending and moves to balance after the freeze period.
type CoinWallet struct {
	UserID       int64           `db:"user_id" json:"user_id"`
	BalanceCoins decimal.Decimal `db:"balance_coins" json:"balance_coins"`
	PendingCoins decimal.Decimal `db:"pending_coins" json:"pending_coins"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// CommissionWallet has the same shape as CoinWallet but is denominated
// in yuan, for promoter commission.
type CommissionWallet struct {
	UserID     int64           `db:"user_id" json:"user_id"`
	BalanceCNY decimal.Decimal `db:"balance_cny" json:"balance_cny"`
	PendingCNY decimal.Decimal `db:"pending_cny" json:"pending_cny"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

type CreditLedger struct {
	LedgerID     int64     `db:"ledger_id" json:"ledger_id"`
	UserID       int64     `db:"user_id" json:"-"`
	Type         string    `db:"type" json:"type"`
	Amount       int       `db:"amount" json:"amount"`
	BalanceAfter int       `db:"balance_after" json:"balance_after"`
	RefType      *string   `db:"ref_type" json:"ref_type,omitempty"`
	RefID        *int64    `db:"ref_id" json:"ref_id,omitempty"`
	Description  *string   `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type CoinLedger struct {
	LedgerID     int64           `db:"ledger_id" json:"ledger_id"`
	UserID       int64           `db:"user_id" json:"-"`
	Type         string          `db:"type" json:"type"`
	AmountCoins  decimal.Decimal `db:"amount_coins" json:"amount_coins"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	SourceUserID *int64          `db:"source_user_id" json:"source_user_id,omitempty"`
	RefType      *string         `db:"ref_type" json:"ref_type,omitempty"`
	RefID        *int64          `db:"ref_id" json:"ref_id,omitempty"`
	Status       string          `db:"status" json:"status"`
	UnlockAt     *time.Time      `db:"unlock_at" json:"unlock_at,omitempty"`
	Description  *string         `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

type CommissionLedger struct {
	LedgerID     int64           `db:"ledger_id" json:"ledger_id"`
	UserID       int64           `db:"user_id" json:"-"`
	Type         string          `db:"type" json:"type"`
	AmountCNY    decimal.Decimal `db:"amount_cny" json:"amount_cny"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	SourceUserID *int64          `db:"source_user_id" json:"source_user_id,omitempty"`
	Status       string          `db:"status" json:"status"`
	UnlockAt     *time.Time      `db:"unlock_at" json:"unlock_at,omitempty"`
	Description  *string         `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Balances is the client-facing three-wallet snapshot.
type Balances struct {
	Credits             int             `json:"credits"`
	CoinsAvailable      decimal.Decimal `json:"coins_available"`
	CoinsPending        decimal.Decimal `json:"coins_pending"`
	CommissionAvailable decimal.Decimal `json:"commission_available"`
	CommissionPending   decimal.Decimal `json:"commission_pending"`
}
