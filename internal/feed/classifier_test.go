package feed

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/chillman12/dexter3.0/internal/domain"
	"github.com/chillman12/dexter3.0/internal/retention"
)

func newTestClassifier() (Stores, *Stats, *Classifier) {
	stores := Stores{
		Quotes:        retention.New(100, retention.Insertion, domain.Quote.Key),
		Opportunities: retention.New(20, retention.NewestFirst, domain.OpportunityRecord.Key),
		Alerts:        retention.New(10, retention.NewestFirst, domain.MevAlert.Key),
		Depth:         retention.New(5, retention.NewestFirst, domain.DepthSnapshot.Key),
		Executions:    retention.New(20, retention.NewestFirst, domain.ExecutionUpdate.Key),
	}
	stats := &Stats{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return stores, stats, NewClassifier(stores, stats, logger)
}

func priceFrame(pair, exchange string, bid, ask float64, ts int64) []byte {
	return []byte(fmt.Sprintf(
		`{"message_type":"price_update","data":{"pair":%q,"exchange":%q,"price":%f,"bid":%f,"ask":%f,"volume_24h":1000,"liquidity":5000,"timestamp":%d},"timestamp":%d}`,
		pair, exchange, (bid+ask)/2, bid, ask, ts, ts,
	))
}

func TestClassifierRoutesPriceUpdate(t *testing.T) {
	stores, stats, c := newTestClassifier()

	c.HandleFrame(priceFrame("SOL/USDC", "Orca", 99.9, 100.1, 1000))

	if stores.Quotes.Len() != 1 {
		t.Fatalf("expected quote stored, len %d", stores.Quotes.Len())
	}
	q, ok := stores.Quotes.Get("SOL/USDC|Orca")
	if !ok {
		t.Fatal("expected quote keyed by pair|exchange")
	}
	if q.Exchange != "Orca" {
		t.Errorf("unexpected quote: %+v", q)
	}

	snap := stats.Snapshot()
	if snap.MessagesReceived != 1 {
		t.Errorf("expected 1 message counted, got %d", snap.MessagesReceived)
	}
	if snap.LastMessageTime != 1000 {
		t.Errorf("expected last message time 1000, got %d", snap.LastMessageTime)
	}
}

func TestClassifierNewestTimestampWins(t *testing.T) {
	stores, _, c := newTestClassifier()

	c.HandleFrame(priceFrame("SOL/USDC", "Orca", 100.0, 100.2, 2000))
	c.HandleFrame(priceFrame("SOL/USDC", "Orca", 50.0, 50.2, 1000)) // stale, must be dropped
	c.HandleFrame(priceFrame("SOL/USDC", "Orca", 101.0, 101.2, 3000))

	q, _ := stores.Quotes.Get("SOL/USDC|Orca")
	if q.Timestamp != 3000 {
		t.Errorf("expected newest quote retained, got timestamp %d", q.Timestamp)
	}
	if stores.Quotes.Len() != 1 {
		t.Errorf("expected one entry per (pair,exchange), len %d", stores.Quotes.Len())
	}
}

func TestClassifierQuoteCapHolds(t *testing.T) {
	stores, _, c := newTestClassifier()

	for i := 0; i < 120; i++ {
		c.HandleFrame(priceFrame(fmt.Sprintf("P%03d/USDC", i), "Orca", 99, 100, int64(i)))
	}

	if stores.Quotes.Len() != 100 {
		t.Errorf("expected quote store capped at 100, got %d", stores.Quotes.Len())
	}
	// Oldest evicted first.
	if _, ok := stores.Quotes.Get("P000/USDC|Orca"); ok {
		t.Error("expected oldest quote evicted")
	}
	if _, ok := stores.Quotes.Get("P119/USDC|Orca"); !ok {
		t.Error("expected newest quote retained")
	}
}

func TestClassifierMalformedFrameDiscarded(t *testing.T) {
	stores, stats, c := newTestClassifier()

	c.HandleFrame([]byte(`{"message_type":`))
	c.HandleFrame([]byte(`not json at all`))

	if stores.Quotes.Len() != 0 {
		t.Error("malformed frames must not reach any store")
	}
	if stats.Snapshot().MessagesReceived != 0 {
		t.Error("malformed frames must not count as received messages")
	}
}

func TestClassifierUnknownKindDiscarded(t *testing.T) {
	stores, stats, c := newTestClassifier()

	c.HandleFrame([]byte(`{"message_type":"telemetry","data":{"x":1},"timestamp":5}`))

	if stores.Quotes.Len()+stores.Opportunities.Len()+stores.Alerts.Len()+stores.Depth.Len()+stores.Executions.Len() != 0 {
		t.Error("unknown kinds must not land in any store")
	}
	// The envelope itself parsed, so it still counts toward stats.
	if stats.Snapshot().MessagesReceived != 1 {
		t.Error("expected parsed envelope to be counted")
	}
}

func TestClassifierRoutesOpportunityUpdate(t *testing.T) {
	stores, _, c := newTestClassifier()

	frame := []byte(`{"message_type":"opportunity_update","data":{"id":"opp-1","pair":"SOL/USDC","profit_percentage":1.5,"net_profit":1.4},"timestamp":10}`)
	c.HandleFrame(frame)
	c.HandleFrame(frame) // same id, dedup

	if stores.Opportunities.Len() != 1 {
		t.Fatalf("expected deduplicated opportunity, len %d", stores.Opportunities.Len())
	}
}

func TestClassifierRoutesMevAlert(t *testing.T) {
	stores, _, c := newTestClassifier()

	for i := 0; i < 15; i++ {
		c.HandleFrame([]byte(fmt.Sprintf(
			`{"message_type":"mev_alert","data":{"id":"mev-%d","threat_type":"Sandwiching","risk_level":"High","affected_tokens":["SOL"]},"timestamp":%d}`,
			i, i,
		)))
	}

	if stores.Alerts.Len() != 10 {
		t.Fatalf("expected alert store capped at 10, got %d", stores.Alerts.Len())
	}
	snap := stores.Alerts.Snapshot()
	if snap[0].ID != "mev-14" {
		t.Errorf("expected most recent alert first, got %s", snap[0].ID)
	}
}

func TestClassifierRoutesMarketDepth(t *testing.T) {
	stores, _, c := newTestClassifier()

	c.HandleFrame([]byte(`{"message_type":"market_depth","data":{"pair":"SOL/USDC","bids":[{"price":103.45,"size":1000,"total":1000}],"asks":[{"price":103.46,"size":900,"total":900}]},"timestamp":7}`))

	d, ok := stores.Depth.Get("SOL/USDC")
	if !ok {
		t.Fatal("expected depth snapshot keyed by pair")
	}
	if len(d.Bids) != 1 || len(d.Asks) != 1 {
		t.Errorf("unexpected depth payload: %+v", d)
	}
	if d.Timestamp != 7 {
		t.Errorf("expected envelope timestamp backfilled, got %d", d.Timestamp)
	}
}

func TestClassifierRoutesExecutionUpdate(t *testing.T) {
	stores, _, c := newTestClassifier()

	c.HandleFrame([]byte(`{"message_type":"execution_update","data":{"id":"ex-1","opportunity_id":"opp-1","status":"filled"},"timestamp":9}`))

	if _, ok := stores.Executions.Get("ex-1"); !ok {
		t.Error("expected execution update stored")
	}
}

func TestClassifierQuoteUpsertHook(t *testing.T) {
	_, _, c := newTestClassifier()

	var scanned []string
	c.OnQuoteUpsert = func(pair string) { scanned = append(scanned, pair) }

	c.HandleFrame(priceFrame("SOL/USDC", "Orca", 99, 100, 2000))
	c.HandleFrame(priceFrame("SOL/USDC", "Orca", 98, 99, 1000)) // stale, no hook
	c.HandleFrame(priceFrame("ETH/USDC", "Orca", 3400, 3401, 2000))

	if len(scanned) != 2 || scanned[0] != "SOL/USDC" || scanned[1] != "ETH/USDC" {
		t.Errorf("unexpected hook invocations: %v", scanned)
	}
}
