package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quote is the latest known price for a trading pair on one exchange. The
// identity of a quote is the (pair, exchange) tuple; a newer quote for the
// same tuple supersedes the old one.
type Quote struct {
	Pair      string          `json:"pair"`
	Exchange  string          `json:"exchange"`
	Price     decimal.Decimal `json:"price"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Change24h float64         `json:"change_24h"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Timestamp int64           `json:"timestamp"` // epoch milliseconds
}

// Key returns the retention-store identity for the quote.
func (q Quote) Key() string {
	return fmt.Sprintf("%s|%s", q.Pair, q.Exchange)
}

// Tradeable reports whether the quote carries a usable two-sided market.
func (q Quote) Tradeable() bool {
	return q.Bid.IsPositive() && q.Ask.IsPositive()
}
