package feed

import "encoding/json"

// Message kinds recognized on the inbound stream. Anything else is logged
// and discarded without affecting connection state.
const (
	KindPriceUpdate       = "price_update"
	KindOpportunityUpdate = "opportunity_update"
	KindMevAlert          = "mev_alert"
	KindMarketDepth       = "market_depth"
	KindExecutionUpdate   = "execution_update"
)

// Envelope is the outer wire frame every inbound message arrives in. The
// payload stays opaque until the classifier routes it by MessageType.
type Envelope struct {
	MessageType string          `json:"message_type"`
	Data        json.RawMessage `json:"data"`
	Timestamp   int64           `json:"timestamp"` // epoch milliseconds
}

// Command is the outbound subscription control frame.
type Command struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
	Pairs    []string `json:"pairs,omitempty"`
}

// FrameHandler consumes raw inbound frames. The live client and the mock
// generator both feed the same handler, which is what makes a simulated feed
// interchangeable with a live one.
type FrameHandler interface {
	HandleFrame(frame []byte)
}
