package feed

import (
	"fmt"

	"github.com/chillman12/dexter3.0/internal/domain"
	"github.com/shopspring/decimal"
)

// Intent command actions forwarded verbatim to the remote execution service.
const (
	ActionExecuteArbitrage  = "execute_arbitrage"
	ActionExecuteTrade      = "execute_trade"
	ActionCancelExecution   = "cancel_execution"
	ActionToggleAutoTrading = "toggle_auto_trading"
	ActionWalletConnect     = "wallet_connect"
	ActionWalletDisconnect  = "wallet_disconnect"
)

// Dispatcher serializes outbound intent commands onto the connection. The
// core never interprets these payloads; it only sends them. Unlike
// subscriptions, intents are never queued: sending while disconnected fails
// immediately with domain.ErrNotConnected.
type Dispatcher struct {
	client *Client
}

// NewDispatcher creates a dispatcher writing through the given client.
func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// ExecuteArbitrage requests execution of a detected opportunity.
func (d *Dispatcher) ExecuteArbitrage(opportunityID string, amount, slippage decimal.Decimal) error {
	return d.send(map[string]any{
		"action":         ActionExecuteArbitrage,
		"opportunity_id": opportunityID,
		"amount":         amount,
		"slippage":       slippage,
	})
}

// ExecuteTrade forwards an arbitrary trade request. The payload is opaque to
// the core; only the action field is injected.
func (d *Dispatcher) ExecuteTrade(params map[string]any) error {
	payload := map[string]any{"action": ActionExecuteTrade}
	for k, v := range params {
		if k != "action" {
			payload[k] = v
		}
	}
	return d.send(payload)
}

// CancelExecution asks the execution service to abort an in-flight execution.
func (d *Dispatcher) CancelExecution(opportunityID string) error {
	return d.send(map[string]any{
		"action":         ActionCancelExecution,
		"opportunity_id": opportunityID,
	})
}

// ToggleAutoTrading enables or disables automatic execution upstream.
func (d *Dispatcher) ToggleAutoTrading(enabled bool) error {
	return d.send(map[string]any{
		"action":  ActionToggleAutoTrading,
		"enabled": enabled,
	})
}

// ConnectWallet announces a wallet to the execution service.
func (d *Dispatcher) ConnectWallet(walletType, address string) error {
	return d.send(map[string]any{
		"action":      ActionWalletConnect,
		"wallet_type": walletType,
		"address":     address,
	})
}

// DisconnectWallet detaches a wallet from the execution service.
func (d *Dispatcher) DisconnectWallet(address string) error {
	return d.send(map[string]any{
		"action":  ActionWalletDisconnect,
		"address": address,
	})
}

// send writes the payload when connected, or fails loudly when not.
func (d *Dispatcher) send(payload map[string]any) error {
	c := d.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.current() != domain.StateConnected || c.conn == nil {
		return fmt.Errorf("feed: dispatch %v: %w", payload["action"], domain.ErrNotConnected)
	}
	return c.writeLocked(payload)
}
