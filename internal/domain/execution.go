package domain

// ExecutionUpdate reports progress of a trade execution handled by the
// remote execution service. The core records these verbatim; it never acts
// on them.
type ExecutionUpdate struct {
	ID            string `json:"id"`
	OpportunityID string `json:"opportunity_id"`
	Status        string `json:"status"` // e.g. "pending", "filled", "failed"
	TxHash        string `json:"tx_hash,omitempty"`
	Message       string `json:"message,omitempty"`
	Timestamp     int64  `json:"timestamp"` // epoch milliseconds
}

// Key returns the retention-store identity for the update.
func (e ExecutionUpdate) Key() string { return e.ID }
