package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger is what the engines depend on. All balance mutation goes
// through this interface; nothing else writes wallet rows.
type Ledger interface {
	CreateWallets(ctx context.Context, userID int64) error

	CreditCredits(ctx context.Context, userID int64, amount int, txType string, ref *Ref, description string) (*CreditLedger, error)
	DebitCredits(ctx context.Context, userID int64, amount int, txType string, ref *Ref, description string) (*CreditLedger, error)

	CreditCoinsPending(ctx context.Context, userID int64, amount decimal.Decimal, sourceUserID *int64, txType string, ref *Ref, unlockAt time.Time, description string) (*CoinLedger, error)
	DebitCoinsAvailable(ctx context.Context, userID int64, amount decimal.Decimal, txType string, ref *Ref, description string) (*CoinLedger, error)
	CreditCoinsAvailable(ctx context.Context, userID int64, amount decimal.Decimal, txType string, ref *Ref, description string) (*CoinLedger, error)

	CreditCommissionPending(ctx context.Context, userID int64, amount decimal.Decimal, sourceUserID *int64, txType string, unlockAt time.Time, description string) (*CommissionLedger, error)

	SettleUnlocked(ctx context.Context, now time.Time) (int64, error)

	GetBalances(ctx context.Context, userID int64) (*Balances, error)
	GetCreditLedgers(ctx context.Context, userID int64, limit int, cursor int64) ([]CreditLedger, error)
	GetCoinLedgers(ctx context.Context, userID int64, limit int, cursor int64) ([]CoinLedger, error)
	GetCommissionLedgers(ctx context.Context, userID int64, limit int, cursor int64) ([]CommissionLedger, error)
}
