package domain

// ConnectionState is the lifecycle state of the upstream feed connection.
// Exactly one instance exists, owned by the feed client; it changes only
// through the client's state machine.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateError
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ConnectionStats summarizes feed connection health for consumers.
type ConnectionStats struct {
	MessagesReceived  uint64 `json:"messages_received"`
	LastMessageTime   int64  `json:"last_message_time"` // epoch milliseconds
	ReconnectAttempts int    `json:"reconnect_attempts"`
}
