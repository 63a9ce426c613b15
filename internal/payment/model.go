package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"

	ChannelMock = "mock"

	ProductTypeRecharge     = "recharge"
	ProductTypeSubscription = "subscription"

	// SubscriptionProductID identifies the monthly card in the fixed
	// catalog; recharge tiers occupy the low ids.
	SubscriptionProductID = 100
)

// Product is a purchasable catalog item. The catalog is fixed tariff
// data rather than a table; payments reference products by id only.
type Product struct {
	ProductID    int             `json:"product_id"`
	Name         string          `json:"name"`
	ProductType  string          `json:"product_type"`
	PriceYuan    decimal.Decimal `json:"price_yuan"`
	Credits      int             `json:"credits,omitempty"`
	BonusCredits int             `json:"bonus_credits,omitempty"`
	DurationDays int             `json:"duration_days,omitempty"`
	DailyCredits int             `json:"daily_credits,omitempty"`
}

type Payment struct {
	PaymentID  int64           `db:"payment_id" json:"payment_id"`
	UserID     int64           `db:"user_id" json:"user_id"`
	ProductID  int             `db:"product_id" json:"product_id"`
	AmountCNY  decimal.Decimal `db:"amount_cny" json:"amount_cny"`
	PayChannel string          `db:"pay_channel" json:"pay_channel"`
	Status     string          `db:"status" json:"status"`
	PayParams  *string         `db:"pay_params" json:"pay_params,omitempty"`
	PaidAt     *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
