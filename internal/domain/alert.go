package domain

// RiskLevel grades the severity of a MEV threat.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// MevAlert is a notification about detected MEV activity (frontrunning,
// sandwiching, JIT arbitrage) affecting one or more tokens.
type MevAlert struct {
	ID             string    `json:"id"`
	ThreatType     string    `json:"threat_type"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Description    string    `json:"description"`
	AffectedTokens []string  `json:"affected_tokens"`
	Timestamp      int64     `json:"timestamp"` // epoch milliseconds
}

// Key returns the retention-store identity for the alert.
func (a MevAlert) Key() string { return a.ID }
