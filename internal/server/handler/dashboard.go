package handler

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/chillman12/dexter3.0/internal/domain"
	"github.com/chillman12/dexter3.0/internal/retention"
)

// OpportunitySource serves ranked, unexpired opportunities.
type OpportunitySource interface {
	Top(limit int) []domain.OpportunityRecord
}

// DashboardHandler serves read-only views over the retention stores for the
// dashboard frontend.
type DashboardHandler struct {
	feed          FeedStatus
	quotes        *retention.Store[domain.Quote]
	opportunities OpportunitySource
	alerts        *retention.Store[domain.MevAlert]
	depth         *retention.Store[domain.DepthSnapshot]
	executions    *retention.Store[domain.ExecutionUpdate]
	logger        *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler over the given stores.
func NewDashboardHandler(
	feed FeedStatus,
	quotes *retention.Store[domain.Quote],
	opportunities OpportunitySource,
	alerts *retention.Store[domain.MevAlert],
	depth *retention.Store[domain.DepthSnapshot],
	executions *retention.Store[domain.ExecutionUpdate],
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		feed:          feed,
		quotes:        quotes,
		opportunities: opportunities,
		alerts:        alerts,
		depth:         depth,
		executions:    executions,
		logger:        logger,
	}
}

// Stats returns the feed connection counters.
// GET /api/v1/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.feed.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":              h.feed.State().String(),
		"messages_received":  stats.MessagesReceived,
		"last_message_time":  stats.LastMessageTime,
		"reconnect_attempts": stats.ReconnectAttempts,
		"quotes":             h.quotes.Len(),
	})
}

// Prices returns the retained quotes, optionally filtered by pair.
// GET /api/v1/prices?pair=SOL/USDC
func (h *DashboardHandler) Prices(w http.ResponseWriter, r *http.Request) {
	quotes := h.quotes.Snapshot()

	if pair := r.URL.Query().Get("pair"); pair != "" {
		filtered := quotes[:0]
		for _, q := range quotes {
			if q.Pair == pair {
				filtered = append(filtered, q)
			}
		}
		quotes = filtered
	}

	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].Pair != quotes[j].Pair {
			return quotes[i].Pair < quotes[j].Pair
		}
		return quotes[i].Exchange < quotes[j].Exchange
	})

	if quotes == nil {
		quotes = []domain.Quote{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": quotes})
}

// Opportunities returns ranked, unexpired arbitrage opportunities.
// GET /api/v1/opportunities?limit=20
func (h *DashboardHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 100)
	opps := h.opportunities.Top(limit)
	if opps == nil {
		opps = []domain.OpportunityRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": opps})
}

// MevThreats returns retained MEV alerts, newest first.
// GET /api/v1/mev-threats
func (h *DashboardHandler) MevThreats(w http.ResponseWriter, r *http.Request) {
	alerts := h.alerts.Snapshot()
	if alerts == nil {
		alerts = []domain.MevAlert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"threats": alerts})
}

// MarketDepth returns the latest depth snapshot for a pair. The pair segment
// uses a dash separator so it survives URL routing, e.g. SOL-USDC.
// GET /api/v1/market-depth/{pair}
func (h *DashboardHandler) MarketDepth(w http.ResponseWriter, r *http.Request) {
	pair := r.PathValue("pair")
	if pair == "" {
		writeError(w, http.StatusBadRequest, "missing pair")
		return
	}
	pair = normalizePair(pair)

	snapshot, ok := h.depth.Get(pair)
	if !ok {
		writeError(w, http.StatusNotFound, "no depth snapshot for "+pair)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Executions returns retained execution updates.
// GET /api/v1/executions
func (h *DashboardHandler) Executions(w http.ResponseWriter, r *http.Request) {
	execs := h.executions.Snapshot()
	if execs == nil {
		execs = []domain.ExecutionUpdate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": execs})
}

// normalizePair converts a URL-safe pair segment (SOL-USDC) back to the wire
// form (SOL/USDC). Pairs already in wire form pass through unchanged.
func normalizePair(pair string) string {
	out := []byte(pair)
	for i := range out {
		if out[i] == '-' {
			out[i] = '/'
		}
	}
	return string(out)
}
