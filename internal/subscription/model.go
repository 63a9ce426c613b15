package subscription

import "time"

const StatusActive = "active"

// Subscription is a monthly card. Renewing while active extends EndAt
// instead of opening a second row.
type Subscription struct {
	SubscriptionID int64     `db:"subscription_id" json:"subscription_id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	PaymentID      *int64    `db:"payment_id" json:"payment_id,omitempty"`
	Status         string    `db:"status" json:"status"`
	StartAt        time.Time `db:"start_at" json:"start_at"`
	EndAt          time.Time `db:"end_at" json:"end_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// DailyRewardClaim records one daily credit grant. The unique
// (user_id, claim_date) index is what enforces once per calendar day.
type DailyRewardClaim struct {
	ClaimID        int64     `db:"claim_id" json:"claim_id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	SubscriptionID int64     `db:"subscription_id" json:"subscription_id"`
	ClaimDate      time.Time `db:"claim_date" json:"claim_date"`
	CreditsAmount  int       `db:"credits_amount" json:"credits_amount"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Status is the my-subscription view: the active card if any, plus
// whether today's credits were already claimed.
type Status struct {
	Subscription  *Subscription `json:"subscription"`
	DaysRemaining int           `json:"days_remaining"`
	TodayClaimed  bool          `json:"today_claimed"`
}
