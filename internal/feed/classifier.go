package feed

import (
	"encoding/json"
	"log/slog"

	"github.com/chillman12/dexter3.0/internal/domain"
	"github.com/chillman12/dexter3.0/internal/retention"
)

// Stores bundles the retention stores the classifier routes into.
type Stores struct {
	Quotes        *retention.Store[domain.Quote]
	Opportunities *retention.Store[domain.OpportunityRecord]
	Alerts        *retention.Store[domain.MevAlert]
	Depth         *retention.Store[domain.DepthSnapshot]
	Executions    *retention.Store[domain.ExecutionUpdate]
}

// Classifier parses inbound envelopes and routes each payload to the
// retention store declared by its message kind. Malformed frames are logged
// and dropped; they never affect connection state. Routing is total: every
// recognized kind maps to exactly one store, everything else is discarded.
type Classifier struct {
	stores Stores
	stats  *Stats
	logger *slog.Logger

	// OnQuoteUpsert, when set, runs after a price update lands in the quote
	// store. The scanner hooks in here so it only scans on fresh data.
	OnQuoteUpsert func(pair string)

	// OnMevAlert, when set, runs after an alert lands in the alert store.
	OnMevAlert func(alert domain.MevAlert)
}

// NewClassifier creates a classifier routing into the given stores.
func NewClassifier(stores Stores, stats *Stats, logger *slog.Logger) *Classifier {
	return &Classifier{
		stores: stores,
		stats:  stats,
		logger: logger.With(slog.String("component", "classifier")),
	}
}

// HandleFrame implements FrameHandler. Frames are processed strictly in the
// order they are delivered.
func (c *Classifier) HandleFrame(frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.logger.Warn("discarding malformed frame",
			slog.String("error", err.Error()),
			slog.Int("frame_len", len(frame)),
		)
		return
	}

	c.stats.RecordMessage(env.Timestamp)

	switch env.MessageType {
	case KindPriceUpdate:
		c.handlePriceUpdate(env)
	case KindOpportunityUpdate:
		c.handleOpportunityUpdate(env)
	case KindMevAlert:
		c.handleMevAlert(env)
	case KindMarketDepth:
		c.handleMarketDepth(env)
	case KindExecutionUpdate:
		c.handleExecutionUpdate(env)
	default:
		c.logger.Debug("discarding unrecognized message type",
			slog.String("message_type", env.MessageType),
		)
	}
}

func (c *Classifier) handlePriceUpdate(env Envelope) {
	var quote domain.Quote
	if err := json.Unmarshal(env.Data, &quote); err != nil {
		c.logger.Warn("discarding malformed price update", slog.String("error", err.Error()))
		return
	}
	if quote.Pair == "" || quote.Exchange == "" {
		c.logger.Warn("discarding price update without identity")
		return
	}
	if quote.Timestamp == 0 {
		quote.Timestamp = env.Timestamp
	}

	// A later update for the same (pair, exchange) always supersedes an
	// earlier one; an out-of-order older update is dropped.
	if existing, ok := c.stores.Quotes.Get(quote.Key()); ok && existing.Timestamp > quote.Timestamp {
		return
	}
	c.stores.Quotes.Upsert(quote)

	if c.OnQuoteUpsert != nil {
		c.OnQuoteUpsert(quote.Pair)
	}
}

func (c *Classifier) handleOpportunityUpdate(env Envelope) {
	var rec domain.OpportunityRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		c.logger.Warn("discarding malformed opportunity update", slog.String("error", err.Error()))
		return
	}
	if rec.ID == "" {
		c.logger.Warn("discarding opportunity update without id")
		return
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = env.Timestamp
	}
	c.stores.Opportunities.Upsert(rec)
}

func (c *Classifier) handleMevAlert(env Envelope) {
	var alert domain.MevAlert
	if err := json.Unmarshal(env.Data, &alert); err != nil {
		c.logger.Warn("discarding malformed mev alert", slog.String("error", err.Error()))
		return
	}
	if alert.ID == "" {
		c.logger.Warn("discarding mev alert without id")
		return
	}
	if alert.Timestamp == 0 {
		alert.Timestamp = env.Timestamp
	}
	c.stores.Alerts.Upsert(alert)

	if c.OnMevAlert != nil {
		c.OnMevAlert(alert)
	}
}

func (c *Classifier) handleMarketDepth(env Envelope) {
	var depth domain.DepthSnapshot
	if err := json.Unmarshal(env.Data, &depth); err != nil {
		c.logger.Warn("discarding malformed depth snapshot", slog.String("error", err.Error()))
		return
	}
	if depth.Pair == "" {
		c.logger.Warn("discarding depth snapshot without pair")
		return
	}
	if depth.Timestamp == 0 {
		depth.Timestamp = env.Timestamp
	}
	c.stores.Depth.Upsert(depth)
}

func (c *Classifier) handleExecutionUpdate(env Envelope) {
	var upd domain.ExecutionUpdate
	if err := json.Unmarshal(env.Data, &upd); err != nil {
		c.logger.Warn("discarding malformed execution update", slog.String("error", err.Error()))
		return
	}
	if upd.ID == "" {
		c.logger.Warn("discarding execution update without id")
		return
	}
	if upd.Timestamp == 0 {
		upd.Timestamp = env.Timestamp
	}
	c.stores.Executions.Upsert(upd)
}
