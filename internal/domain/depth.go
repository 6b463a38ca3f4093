package domain

import "github.com/shopspring/decimal"

// DepthLevel is one price level of an order book side.
type DepthLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
	Total decimal.Decimal `json:"total"`
}

// DepthSnapshot is a point-in-time view of the top order book levels for a
// pair. One live snapshot is kept per pair.
type DepthSnapshot struct {
	Pair      string       `json:"pair"`
	Bids      []DepthLevel `json:"bids"`
	Asks      []DepthLevel `json:"asks"`
	Timestamp int64        `json:"timestamp"` // epoch milliseconds
}

// Key returns the retention-store identity for the snapshot.
func (d DepthSnapshot) Key() string { return d.Pair }
