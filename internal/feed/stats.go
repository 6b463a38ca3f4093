package feed

import (
	"sync/atomic"

	"github.com/chillman12/dexter3.0/internal/domain"
)

// Stats tracks feed connection counters. The client and the classifier are
// the only writers; any goroutine may read a snapshot.
type Stats struct {
	messagesReceived  atomic.Uint64
	lastMessageTime   atomic.Int64
	reconnectAttempts atomic.Int32
}

// RecordMessage counts one successfully parsed inbound message.
func (s *Stats) RecordMessage(timestampMs int64) {
	s.messagesReceived.Add(1)
	s.lastMessageTime.Store(timestampMs)
}

func (s *Stats) setReconnectAttempts(n int) {
	s.reconnectAttempts.Store(int32(n))
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() domain.ConnectionStats {
	return domain.ConnectionStats{
		MessagesReceived:  s.messagesReceived.Load(),
		LastMessageTime:   s.lastMessageTime.Load(),
		ReconnectAttempts: int(s.reconnectAttempts.Load()),
	}
}
