package withdrawal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal states. The coin debit happens at application time, so
// approved/paid are pure status transitions; rejected and cancelled
// are reached via a compensating credit.
const (
	StatusApplied   = "applied"
	StatusApproved  = "approved"
	StatusPaid      = "paid"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

type Withdrawal struct {
	WithdrawalID int64           `db:"withdrawal_id" json:"withdrawal_id"`
	UserID       int64           `db:"user_id" json:"-"`
	AmountCNY    decimal.Decimal `db:"amount_cny" json:"amount_cny"`
	AmountCoins  decimal.Decimal `db:"amount_coins" json:"amount_coins"`
	Method       string          `db:"method" json:"method"`
	AccountInfo  string          `db:"account_info" json:"account_info"`
	Status       string          `db:"status" json:"status"`
	RejectReason *string         `db:"reject_reason" json:"reject_reason,omitempty"`
	AdminNote    *string         `db:"admin_note" json:"-"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
