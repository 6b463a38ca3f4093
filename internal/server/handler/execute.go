package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/chillman12/dexter3.0/internal/domain"
)

// IntentDispatcher forwards execution intents to the upstream service.
type IntentDispatcher interface {
	ExecuteArbitrage(opportunityID string, amount, slippage decimal.Decimal) error
	CancelExecution(opportunityID string) error
	ToggleAutoTrading(enabled bool) error
}

// ExecuteHandler exposes execution intents over HTTP. Intents require a live
// feed connection; requests made while disconnected fail with 503.
type ExecuteHandler struct {
	dispatcher IntentDispatcher
	logger     *slog.Logger
}

// NewExecuteHandler creates an ExecuteHandler writing through dispatcher.
func NewExecuteHandler(dispatcher IntentDispatcher, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{dispatcher: dispatcher, logger: logger}
}

type executeRequest struct {
	OpportunityID string          `json:"opportunity_id"`
	Amount        decimal.Decimal `json:"amount"`
	Slippage      decimal.Decimal `json:"slippage"`
}

// ExecuteArbitrage requests execution of a detected opportunity.
// POST /api/v1/execute
func (h *ExecuteHandler) ExecuteArbitrage(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OpportunityID == "" {
		writeError(w, http.StatusBadRequest, "missing opportunity_id")
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	if err := h.dispatcher.ExecuteArbitrage(req.OpportunityID, req.Amount, req.Slippage); err != nil {
		h.writeDispatchError(w, r, "execute arbitrage", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched"})
}

// CancelExecution aborts an in-flight execution.
// DELETE /api/v1/execute/{id}
func (h *ExecuteHandler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing execution id")
		return
	}

	if err := h.dispatcher.CancelExecution(id); err != nil {
		h.writeDispatchError(w, r, "cancel execution", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched"})
}

type autoTradingRequest struct {
	Enabled bool `json:"enabled"`
}

// ToggleAutoTrading switches automatic execution on or off upstream.
// PUT /api/v1/auto-trading
func (h *ExecuteHandler) ToggleAutoTrading(w http.ResponseWriter, r *http.Request) {
	var req autoTradingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.dispatcher.ToggleAutoTrading(req.Enabled); err != nil {
		h.writeDispatchError(w, r, "toggle auto trading", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"auto_trading": req.Enabled})
}

func (h *ExecuteHandler) writeDispatchError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, domain.ErrNotConnected) {
		writeError(w, http.StatusServiceUnavailable, "feed not connected")
		return
	}
	h.logger.ErrorContext(r.Context(), "handler: "+op+" failed",
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to dispatch intent")
}
