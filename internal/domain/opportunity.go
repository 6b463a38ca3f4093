package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpportunitySide describes one leg (buy or sell) of a cross-exchange
// arbitrage opportunity.
type OpportunitySide struct {
	Exchange  string          `json:"exchange"`
	Price     decimal.Decimal `json:"price"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Fee       decimal.Decimal `json:"fee"` // per-side fee in percent
}

// OpportunityRecord is a detected cross-exchange arbitrage opportunity.
// Records are short-lived: consumers must treat anything past ExpiresAt as
// stale even if it is still present in the store.
type OpportunityRecord struct {
	ID               string          `json:"id"`
	Pair             string          `json:"pair"`
	BuySide          OpportunitySide `json:"buy_side"`
	SellSide         OpportunitySide `json:"sell_side"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
	NetProfit        decimal.Decimal `json:"net_profit"` // percent, after fees
	RequiredCapital  decimal.Decimal `json:"required_capital"`
	Confidence       float64         `json:"confidence"` // 0-100
	ExpiresAt        time.Time       `json:"expires_at"`
	ExecutionPath    []string        `json:"execution_path"`
	Timestamp        int64           `json:"timestamp"` // epoch milliseconds
}

// Key returns the retention-store identity for the record.
func (o OpportunityRecord) Key() string { return o.ID }

// Expired reports whether the opportunity is stale at the given instant.
func (o OpportunityRecord) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
