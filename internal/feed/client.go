// Package feed implements the live data synchronization layer: a single
// WebSocket connection to the upstream quote multiplexer, an explicit
// connection state machine with bounded reconnection, subscription replay,
// and classification of inbound messages into bounded retention stores.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chillman12/dexter3.0/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 15 * time.Second
)

// ClientConfig holds the connection and reconnection parameters.
type ClientConfig struct {
	URL                  string
	ReconnectBaseDelay   time.Duration // first retry delay, doubled per attempt
	ReconnectMaxDelay    time.Duration // backoff cap
	MaxReconnectAttempts int           // retries before the terminal Error state
}

// Client owns the single upstream connection. It drives the connection state
// machine, replays subscriptions after every successful handshake, and hands
// each inbound frame to the configured FrameHandler in arrival order.
type Client struct {
	cfg      ClientConfig
	registry *Registry
	handler  FrameHandler
	stats    *Stats
	machine  *stateMachine
	logger   *slog.Logger

	mu             sync.Mutex
	conn           *websocket.Conn
	connDone       chan struct{} // closed when the current connection is torn down
	reconnectTimer *time.Timer
	attempts       int
	closed         bool
}

// NewClient creates a client for the given endpoint. Frames read from the
// connection are passed to handler; registry contents are replayed on every
// successful handshake.
func NewClient(cfg ClientConfig, registry *Registry, handler FrameHandler, stats *Stats, logger *slog.Logger) *Client {
	c := &Client{
		cfg:      cfg,
		registry: registry,
		handler:  handler,
		stats:    stats,
		logger:   logger.With(slog.String("component", "feed_client")),
	}
	c.machine = newStateMachine(func(from, to domain.ConnectionState) {
		c.logger.Debug("connection state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return c
}

// Open dials the upstream endpoint. On success the state becomes Connected,
// the retry budget resets, and all registered subscriptions are replayed. On
// failure the state becomes Error and a reconnect is scheduled with
// exponential backoff. Calling Open while already connected or connecting is
// a no-op.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// An explicit Open is the designated recovery path out of the terminal
	// Error state, so it gets a fresh retry budget.
	c.attempts = 0
	c.stats.setReconnectAttempts(0)
	return c.openLocked(ctx)
}

// openLocked performs the dial. Caller must hold c.mu.
func (c *Client) openLocked(ctx context.Context) error {
	switch c.machine.current() {
	case domain.StateConnected, domain.StateConnecting:
		return nil
	}

	c.closed = false
	c.stopReconnectTimerLocked()

	if err := c.machine.transition(domain.StateConnecting); err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		_ = c.machine.transition(domain.StateError)
		c.scheduleReconnectLocked()
		return fmt.Errorf("feed: connect %s: %w", c.cfg.URL, err)
	}

	c.conn = conn
	c.connDone = make(chan struct{})

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	_ = c.machine.transition(domain.StateConnected)
	c.attempts = 0
	c.stats.setReconnectAttempts(0)

	go c.readLoop(conn)
	go c.pingLoop(conn, c.connDone)

	c.replaySubscriptionsLocked()

	c.logger.Info("feed connected", slog.String("url", c.cfg.URL))
	return nil
}

// Close forces a clean transition to Disconnected from any state and cancels
// any pending reconnect timer before returning. It is idempotent; a later
// Open reopens the client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.stopReconnectTimerLocked()

	if c.conn != nil {
		_ = c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.teardownConnLocked()
	}

	_ = c.machine.transition(domain.StateDisconnected)
	return nil
}

// State returns the current connection state.
func (c *Client) State() domain.ConnectionState {
	return c.machine.current()
}

// Stats returns a snapshot of the connection counters.
func (c *Client) Stats() domain.ConnectionStats {
	return c.stats.Snapshot()
}

// Subscribe registers the channels (optionally scoped to pairs) and, when
// connected, sends a subscribe command for whatever actually changed. When
// not connected the registration stays pending and is flushed by the replay
// on the next successful handshake.
func (c *Client) Subscribe(channels []string, pairs ...string) error {
	changed := c.registry.Add(channels, pairs)
	if len(changed) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.current() != domain.StateConnected || c.conn == nil {
		return nil // pending until next handshake
	}
	return c.writeLocked(Command{Action: "subscribe", Channels: changed, Pairs: pairs})
}

// Unsubscribe removes the channels from the registry and, when connected,
// sends an unsubscribe command for those that were present.
func (c *Client) Unsubscribe(channels []string) error {
	changed := c.registry.Remove(channels)
	if len(changed) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.current() != domain.StateConnected || c.conn == nil {
		return nil
	}
	return c.writeLocked(Command{Action: "unsubscribe", Channels: changed})
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// writeLocked marshals v and writes it as a single text frame. Caller must
// hold c.mu; gorilla/websocket allows only one concurrent writer.
func (c *Client) writeLocked(v any) error {
	if c.conn == nil {
		return domain.ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("feed: marshal command: %w", err)
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("feed: write: %w", err)
	}
	return nil
}

// replaySubscriptionsLocked re-sends every registered subscription. Caller
// must hold c.mu with an open connection.
func (c *Client) replaySubscriptionsLocked() {
	for _, sub := range c.registry.List() {
		cmd := Command{Action: "subscribe", Channels: []string{sub.Channel}, Pairs: sub.Pairs}
		if err := c.writeLocked(cmd); err != nil {
			c.logger.Warn("subscription replay failed",
				slog.String("channel", sub.Channel),
				slog.String("error", err.Error()),
			)
			return
		}
	}
}

// readLoop reads frames from conn until it fails, handing each frame to the
// handler in arrival order.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}
		c.handler.HandleFrame(frame)
	}
}

// pingLoop keeps the connection alive until it is torn down.
func (c *Client) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != conn {
				c.mu.Unlock()
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// handleDisconnect runs when the read loop fails. A clean close from the
// peer lands in Disconnected, anything else in Error; both schedule a
// reconnect unless Close was called.
func (c *Client) handleDisconnect(conn *websocket.Conn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return // connection already superseded or closed
	}
	c.teardownConnLocked()

	if c.closed {
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		_ = c.machine.transition(domain.StateDisconnected)
	} else {
		_ = c.machine.transition(domain.StateError)
	}

	c.logger.Warn("feed connection lost", slog.String("error", err.Error()))
	c.scheduleReconnectLocked()
}

// teardownConnLocked releases the current connection. Caller must hold c.mu.
func (c *Client) teardownConnLocked() {
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// scheduleReconnectLocked arms the backoff timer for the next attempt, or
// parks the client in the terminal Error state once the budget is spent.
// Caller must hold c.mu.
func (c *Client) scheduleReconnectLocked() {
	if c.closed || c.reconnectTimer != nil {
		return
	}

	if c.attempts >= c.cfg.MaxReconnectAttempts {
		_ = c.machine.transition(domain.StateError)
		c.logger.Error("reconnect attempts exhausted",
			slog.Int("attempts", c.attempts),
			slog.String("url", c.cfg.URL),
		)
		// Terminal: only an explicit Open recovers from here.
		return
	}

	delay := ReconnectDelay(c.cfg.ReconnectBaseDelay, c.cfg.ReconnectMaxDelay, c.attempts)
	c.attempts++
	c.stats.setReconnectAttempts(c.attempts)

	c.logger.Info("scheduling reconnect",
		slog.Int("attempt", c.attempts),
		slog.Duration("delay", delay),
	)

	c.reconnectTimer = time.AfterFunc(delay, c.onReconnectTimer)
}

// onReconnectTimer fires when the backoff delay elapses. Close holds the
// same mutex and flips closed before stopping the timer, so a cancelled
// reconnect can never slip through.
func (c *Client) onReconnectTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconnectTimer = nil
	if c.closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	err := c.openLocked(ctx)
	cancel()
	if err != nil {
		c.logger.Warn("reconnect attempt failed", slog.String("error", err.Error()))
	}
}

// stopReconnectTimerLocked cancels a pending reconnect, if any. Caller must
// hold c.mu.
func (c *Client) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// ReconnectDelay returns the backoff delay before reconnect attempt n
// (zero-based): min(base * 2^n, max).
func ReconnectDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt > 30 {
		return max
	}
	d := base << uint(attempt)
	if d > max || d <= 0 {
		d = max
	}
	return d
}
