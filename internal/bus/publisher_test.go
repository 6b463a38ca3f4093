package bus

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/chillman12/dexter3.0/internal/domain"
)

func testPublisher(queueCap int) *Publisher {
	return &Publisher{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue:  make(chan message, queueCap),
	}
}

func TestEnqueueNeverBlocksWhenQueueIsFull(t *testing.T) {
	p := testPublisher(1)

	rec := domain.OpportunityRecord{ID: "opp-1", Pair: "SOL/USDC"}
	p.PublishOpportunity(rec)
	p.PublishOpportunity(domain.OpportunityRecord{ID: "opp-2", Pair: "SOL/USDC"})

	if got := len(p.queue); got != 1 {
		t.Fatalf("expected 1 queued message, got %d", got)
	}
	msg := <-p.queue
	if msg.channel != OpportunityChannel {
		t.Errorf("expected channel %s, got %s", OpportunityChannel, msg.channel)
	}
	var decoded domain.OpportunityRecord
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if decoded.ID != "opp-1" {
		t.Errorf("expected first record kept, got %s", decoded.ID)
	}
}

func TestAlertsGoToAlertChannel(t *testing.T) {
	p := testPublisher(4)

	p.PublishAlert(domain.MevAlert{
		ID:         "mev-1",
		ThreatType: "sandwich_attack",
		RiskLevel:  domain.RiskHigh,
	})

	msg := <-p.queue
	if msg.channel != AlertChannel {
		t.Errorf("expected channel %s, got %s", AlertChannel, msg.channel)
	}
}

func TestOpportunityPayloadRoundTripsDecimals(t *testing.T) {
	p := testPublisher(1)

	rec := domain.OpportunityRecord{
		ID:   "opp-1",
		Pair: "SOL/USDC",
		BuySide: domain.OpportunitySide{
			Exchange: "Orca",
			Price:    decimal.RequireFromString("99.00"),
		},
		NetProfit: decimal.NewFromFloat(0.809),
	}
	p.PublishOpportunity(rec)

	msg := <-p.queue
	var decoded domain.OpportunityRecord
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !decoded.BuySide.Price.Equal(rec.BuySide.Price) {
		t.Errorf("buy price changed in transit: %s", decoded.BuySide.Price)
	}
}
