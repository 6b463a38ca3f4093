package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chillman12/dexter3.0/internal/domain"
	"github.com/chillman12/dexter3.0/internal/retention"
)

type stubFeed struct {
	state domain.ConnectionState
	stats domain.ConnectionStats
}

func (s *stubFeed) State() domain.ConnectionState { return s.state }
func (s *stubFeed) Stats() domain.ConnectionStats { return s.stats }

type stubOpportunities struct {
	records []domain.OpportunityRecord
}

func (s *stubOpportunities) Top(limit int) []domain.OpportunityRecord {
	if limit < len(s.records) {
		return s.records[:limit]
	}
	return s.records
}

type stubDispatcher struct {
	err      error
	executed []string
	auto     *bool
}

func (s *stubDispatcher) ExecuteArbitrage(id string, amount, slippage decimal.Decimal) error {
	if s.err != nil {
		return s.err
	}
	s.executed = append(s.executed, id)
	return nil
}

func (s *stubDispatcher) CancelExecution(id string) error { return s.err }

func (s *stubDispatcher) ToggleAutoTrading(enabled bool) error {
	if s.err != nil {
		return s.err
	}
	s.auto = &enabled
	return nil
}

type fixture struct {
	mux        *http.ServeMux
	feed       *stubFeed
	quotes     *retention.Store[domain.Quote]
	opps       *stubOpportunities
	alerts     *retention.Store[domain.MevAlert]
	depth      *retention.Store[domain.DepthSnapshot]
	executions *retention.Store[domain.ExecutionUpdate]
	dispatcher *stubDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		feed:       &stubFeed{state: domain.StateConnected},
		quotes:     retention.New[domain.Quote](100, retention.Insertion, domain.Quote.Key),
		opps:       &stubOpportunities{},
		alerts:     retention.New[domain.MevAlert](10, retention.NewestFirst, domain.MevAlert.Key),
		depth:      retention.New[domain.DepthSnapshot](5, retention.Insertion, domain.DepthSnapshot.Key),
		executions: retention.New[domain.ExecutionUpdate](20, retention.Insertion, domain.ExecutionUpdate.Key),
		dispatcher: &stubDispatcher{},
	}

	dashboard := NewDashboardHandler(f.feed, f.quotes, f.opps, f.alerts, f.depth, f.executions, logger)
	health := NewHealthHandler(f.feed, logger)
	execute := NewExecuteHandler(f.dispatcher, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", health.HealthCheck)
	mux.HandleFunc("GET /api/v1/stats", dashboard.Stats)
	mux.HandleFunc("GET /api/v1/prices", dashboard.Prices)
	mux.HandleFunc("GET /api/v1/opportunities", dashboard.Opportunities)
	mux.HandleFunc("GET /api/v1/mev-threats", dashboard.MevThreats)
	mux.HandleFunc("GET /api/v1/market-depth/{pair}", dashboard.MarketDepth)
	mux.HandleFunc("GET /api/v1/executions", dashboard.Executions)
	mux.HandleFunc("POST /api/v1/execute", execute.ExecuteArbitrage)
	mux.HandleFunc("PUT /api/v1/auto-trading", execute.ToggleAutoTrading)
	f.mux = mux
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsFeedState(t *testing.T) {
	f := newFixture(t)
	f.feed.state = domain.StateError

	rec := f.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "error", body["feed"])
}

func TestStatsIncludesCounters(t *testing.T) {
	f := newFixture(t)
	f.feed.stats = domain.ConnectionStats{
		MessagesReceived:  42,
		LastMessageTime:   1700000000000,
		ReconnectAttempts: 2,
	}

	rec := f.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 42, body["messages_received"])
	assert.EqualValues(t, 2, body["reconnect_attempts"])
}

func TestPricesFiltersByPair(t *testing.T) {
	f := newFixture(t)
	f.quotes.Upsert(domain.Quote{Pair: "SOL/USDC", Exchange: "Orca"})
	f.quotes.Upsert(domain.Quote{Pair: "SOL/USDC", Exchange: "Raydium"})
	f.quotes.Upsert(domain.Quote{Pair: "ETH/USDC", Exchange: "Orca"})

	rec := f.do(t, http.MethodGet, "/api/v1/prices?pair=SOL/USDC", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Prices []domain.Quote `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Prices, 2)
	// Sorted by pair then exchange.
	assert.Equal(t, "Orca", body.Prices[0].Exchange)
	assert.Equal(t, "Raydium", body.Prices[1].Exchange)
}

func TestPricesEmptyStoreReturnsEmptyList(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/prices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prices":[]}`, rec.Body.String())
}

func TestOpportunitiesHonorsLimit(t *testing.T) {
	f := newFixture(t)
	f.opps.records = []domain.OpportunityRecord{
		{ID: "opp-1"}, {ID: "opp-2"}, {ID: "opp-3"},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/opportunities?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Opportunities []domain.OpportunityRecord `json:"opportunities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Opportunities, 2)
}

func TestMarketDepthAcceptsDashSeparatedPair(t *testing.T) {
	f := newFixture(t)
	f.depth.Upsert(domain.DepthSnapshot{
		Pair: "SOL/USDC",
		Bids: []domain.DepthLevel{{}},
	})

	rec := f.do(t, http.MethodGet, "/api/v1/market-depth/SOL-USDC", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.DepthSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SOL/USDC", body.Pair)
}

func TestMarketDepthUnknownPairReturns404(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/market-depth/FOO-BAR", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteDispatchesIntent(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/execute",
		`{"opportunity_id":"opp-1","amount":"100","slippage":"0.5"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"opp-1"}, f.dispatcher.executed)
}

func TestExecuteRejectsMissingFields(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/execute", `{"amount":"100"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/execute",
		`{"opportunity_id":"opp-1","amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteWhileDisconnectedReturns503(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = domain.ErrNotConnected

	rec := f.do(t, http.MethodPost, "/api/v1/execute",
		`{"opportunity_id":"opp-1","amount":"100"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestToggleAutoTrading(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/auto-trading", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.dispatcher.auto)
	assert.True(t, *f.dispatcher.auto)
}
