package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tariff bundles every pricing rule consumed by the engines. Engines
// receive it at construction so tests can run with alternate rates.
type Tariff struct {
	// Video generation
	GenerationCosts map[int]int // duration seconds -> credits
	Durations       []int
	Ratios          []string
	TaskTimeout     time.Duration
	DownloadCost    int // no-watermark download, in credits

	// Monetized interactions
	TipTiers          []int
	CreditToYuan      decimal.Decimal // 1 credit in yuan
	TipFeeRate        decimal.Decimal
	PromptFeeRate     decimal.Decimal
	FreezeDays        int
	DefaultUnlockCost int

	// Withdrawals
	MinWithdrawalYuan decimal.Decimal

	// Subscription (monthly card)
	SubscriptionPriceYuan decimal.Decimal
	SubscriptionDays      int
	DailyCredits          int

	RechargeTiers []RechargeTier
}

type RechargeTier struct {
	ProductID    int
	PriceYuan    decimal.Decimal
	Credits      int
	BonusCredits int
}

func DefaultTariff() Tariff {
	return Tariff{
		GenerationCosts: map[int]int{10: 10, 15: 15, 25: 25},
		Durations:       []int{10, 15, 25},
		Ratios:          []string{"9:16", "16:9", "1:1"},
		TaskTimeout:     10 * time.Minute,
		DownloadCost:    6,

		TipTiers:          []int{10, 20, 50, 100},
		CreditToYuan:      decimal.NewFromFloat(0.05),
		TipFeeRate:        decimal.NewFromFloat(0.10),
		PromptFeeRate:     decimal.NewFromFloat(0.10),
		FreezeDays:        7,
		DefaultUnlockCost: 5,

		MinWithdrawalYuan: decimal.NewFromInt(100),

		SubscriptionPriceYuan: decimal.NewFromInt(29),
		SubscriptionDays:      30,
		DailyCredits:          30,

		RechargeTiers: []RechargeTier{
			{ProductID: 1, PriceYuan: decimal.NewFromInt(6), Credits: 120},
			{ProductID: 2, PriceYuan: decimal.NewFromInt(30), Credits: 600},
			{ProductID: 3, PriceYuan: decimal.NewFromInt(68), Credits: 1360},
			{ProductID: 4, PriceYuan: decimal.NewFromInt(128), Credits: 2560},
			{ProductID: 5, PriceYuan: decimal.NewFromInt(328), Credits: 6560},
			{ProductID: 6, PriceYuan: decimal.NewFromInt(648), Credits: 12960},
			{ProductID: 7, PriceYuan: decimal.NewFromInt(2880), Credits: 57600},
		},
	}
}

// GenerationCost returns the credit price for a duration, or false for
// durations outside the supported table.
func (t Tariff) GenerationCost(durationSec int) (int, bool) {
	cost, ok := t.GenerationCosts[durationSec]
	return cost, ok
}

func (t Tariff) ValidRatio(ratio string) bool {
	for _, r := range t.Ratios {
		if r == ratio {
			return true
		}
	}
	return false
}

func (t Tariff) ValidTipAmount(credits int) bool {
	for _, tier := range t.TipTiers {
		if tier == credits {
			return true
		}
	}
	return false
}

func (t Tariff) RechargeTier(productID int) (RechargeTier, bool) {
	for _, tier := range t.RechargeTiers {
		if tier.ProductID == productID {
			return tier, true
		}
	}
	return RechargeTier{}, false
}
