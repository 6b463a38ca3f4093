// Package scanner derives ranked cross-exchange arbitrage opportunities from
// the latest quote snapshot. It runs on quote upserts rather than on a
// timer, so a pair is only re-evaluated when its data changed.
package scanner

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chillman12/dexter3.0/internal/domain"
	"github.com/chillman12/dexter3.0/internal/retention"
)

// Reference magnitudes for the confidence heuristic: liquidity at or above
// liquidityRef (and 24h volume at or above volumeRef) counts as fully liquid.
var (
	liquidityRef = decimal.NewFromInt(1_000_000)
	volumeRef    = decimal.NewFromInt(10_000_000)
)

// Config holds the scanner tuning parameters. The defaults are deliberate
// config, not invariants; see DefaultConfig.
type Config struct {
	ProfitThreshold decimal.Decimal            // minimum gross profit percent to emit
	DefaultFee      decimal.Decimal            // aggregate fee percent when an exchange's fee is unknown
	ExchangeFees    map[string]decimal.Decimal // per-side fee percent by exchange name
	TradeNotional   decimal.Decimal            // base units assumed per trade for capital estimates
	Expiry          time.Duration              // how long an emitted opportunity stays fresh
	MaxConfidence   float64                    // confidence ceiling
}

// DefaultConfig returns the standard scanner parameters.
func DefaultConfig() Config {
	return Config{
		ProfitThreshold: decimal.RequireFromString("0.1"),
		DefaultFee:      decimal.RequireFromString("0.1"),
		TradeNotional:   decimal.NewFromInt(1000),
		Expiry:          60 * time.Second,
		MaxConfidence:   95,
	}
}

// Publisher receives every emitted opportunity, e.g. for fan-out to
// downstream consumers. Implementations must not block.
type Publisher interface {
	PublishOpportunity(rec domain.OpportunityRecord)
}

// Scanner matches best bids against best asks across exchanges and writes
// qualifying opportunities into the opportunity store.
type Scanner struct {
	cfg           Config
	quotes        *retention.Store[domain.Quote]
	opportunities *retention.Store[domain.OpportunityRecord]
	publisher     Publisher
	logger        *slog.Logger

	// ids maps each pair to the id of its emitted record so a re-scan of an
	// unchanged spread updates that record in place instead of accumulating
	// duplicates in the store.
	mu  sync.Mutex
	ids map[string]string

	// Overridable for tests.
	now   func() time.Time
	newID func() string
}

// New creates a scanner reading from quotes and writing to opportunities.
// publisher may be nil.
func New(cfg Config, quotes *retention.Store[domain.Quote], opportunities *retention.Store[domain.OpportunityRecord], publisher Publisher, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:           cfg,
		quotes:        quotes,
		opportunities: opportunities,
		publisher:     publisher,
		logger:        logger.With(slog.String("component", "scanner")),
		ids:           make(map[string]string),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// ScanPair evaluates a single pair. When the best cross-exchange spread
// clears the profit threshold it records (and publishes) an opportunity and
// returns it; when it does not, any previously emitted record for the pair
// is retired from the store.
func (s *Scanner) ScanPair(pair string) (domain.OpportunityRecord, bool) {
	var candidates []domain.Quote
	for _, q := range s.quotes.Snapshot() {
		if q.Pair == pair && q.Tradeable() {
			candidates = append(candidates, q)
		}
	}
	return s.evaluate(pair, candidates)
}

// evaluate runs the spread match over the pair's tradeable quotes.
func (s *Scanner) evaluate(pair string, candidates []domain.Quote) (domain.OpportunityRecord, bool) {
	if len(candidates) < 2 {
		return s.retire(pair)
	}

	buy := candidates[0]
	sell := candidates[0]
	for _, q := range candidates[1:] {
		// Ties break toward the lexically smaller exchange name so the
		// result does not depend on store order.
		if c := q.Ask.Cmp(buy.Ask); c < 0 || (c == 0 && q.Exchange < buy.Exchange) {
			buy = q
		}
		if c := q.Bid.Cmp(sell.Bid); c > 0 || (c == 0 && q.Exchange < sell.Exchange) {
			sell = q
		}
	}

	if buy.Exchange == sell.Exchange {
		return s.retire(pair) // crossed book on one venue, not arbitrage
	}

	spread := sell.Bid.Sub(buy.Ask)
	if !spread.IsPositive() {
		return s.retire(pair)
	}

	profitPct := spread.Div(buy.Ask).Mul(decimal.NewFromInt(100))
	if profitPct.Cmp(s.cfg.ProfitThreshold) <= 0 {
		return s.retire(pair)
	}

	buyFee, sellFee, totalFee := s.fees(buy.Exchange, sell.Exchange)
	netProfit := profitPct.Sub(totalFee)
	now := s.now()

	rec := domain.OpportunityRecord{
		ID:   s.idFor(pair),
		Pair: pair,
		BuySide: domain.OpportunitySide{
			Exchange:  buy.Exchange,
			Price:     buy.Ask,
			Liquidity: buy.Liquidity,
			Fee:       buyFee,
		},
		SellSide: domain.OpportunitySide{
			Exchange:  sell.Exchange,
			Price:     sell.Bid,
			Liquidity: sell.Liquidity,
			Fee:       sellFee,
		},
		ProfitPercentage: profitPct,
		NetProfit:        netProfit,
		RequiredCapital:  buy.Ask.Mul(s.cfg.TradeNotional),
		Confidence:       s.confidence(profitPct, buy, sell),
		ExpiresAt:        now.Add(s.cfg.Expiry),
		ExecutionPath: []string{
			fmt.Sprintf("Buy on %s at %s", buy.Exchange, buy.Ask),
			fmt.Sprintf("Transfer to %s (if needed)", sell.Exchange),
			fmt.Sprintf("Sell on %s at %s", sell.Exchange, sell.Bid),
		},
		Timestamp: now.UnixMilli(),
	}

	s.opportunities.Upsert(rec)
	if s.publisher != nil {
		s.publisher.PublishOpportunity(rec)
	}

	s.logger.Debug("opportunity emitted",
		slog.String("pair", pair),
		slog.String("buy_exchange", buy.Exchange),
		slog.String("sell_exchange", sell.Exchange),
		slog.String("profit_pct", profitPct.StringFixed(4)),
	)
	return rec, true
}

// ScanAll evaluates every pair currently present in the quote store and
// returns the emitted opportunities ranked by net profit, best first. The
// snapshot is taken and grouped once, so a full sweep is linear in the number
// of quotes.
func (s *Scanner) ScanAll() []domain.OpportunityRecord {
	groups := make(map[string][]domain.Quote)
	for _, q := range s.quotes.Snapshot() {
		if q.Tradeable() {
			groups[q.Pair] = append(groups[q.Pair], q)
		}
	}
	pairs := make([]string, 0, len(groups))
	for pair := range groups {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	var out []domain.OpportunityRecord
	for _, pair := range pairs {
		if rec, ok := s.evaluate(pair, groups[pair]); ok {
			out = append(out, rec)
		}
	}
	rank(out)
	return out
}

// Top returns up to limit unexpired opportunities from the store, ranked by
// net profit descending.
func (s *Scanner) Top(limit int) []domain.OpportunityRecord {
	now := s.now()
	var out []domain.OpportunityRecord
	for _, rec := range s.opportunities.Snapshot() {
		if !rec.Expired(now) {
			out = append(out, rec)
		}
	}
	rank(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// idFor returns the stable record id for the pair, minting one on first
// emission. The same id keeps re-scans of a persisting spread as one store
// entry.
func (s *Scanner) idFor(pair string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[pair]
	if !ok {
		id = s.newID()
		s.ids[pair] = id
	}
	return id
}

// retire drops the pair's previously emitted record, if any. A spread that no
// longer clears the threshold must not linger in the store as a live
// opportunity.
func (s *Scanner) retire(pair string) (domain.OpportunityRecord, bool) {
	s.mu.Lock()
	id, ok := s.ids[pair]
	delete(s.ids, pair)
	s.mu.Unlock()

	if ok {
		s.opportunities.Delete(id)
	}
	return domain.OpportunityRecord{}, false
}

// fees resolves the per-side and aggregate fee percentages. When neither
// exchange has a recorded fee the configured aggregate default applies.
func (s *Scanner) fees(buyExchange, sellExchange string) (buyFee, sellFee, total decimal.Decimal) {
	buyFee, buyOK := s.cfg.ExchangeFees[buyExchange]
	sellFee, sellOK := s.cfg.ExchangeFees[sellExchange]

	if !buyOK && !sellOK {
		half := s.cfg.DefaultFee.Div(decimal.NewFromInt(2))
		return half, half, s.cfg.DefaultFee
	}
	if !buyOK {
		buyFee = s.cfg.DefaultFee.Div(decimal.NewFromInt(2))
	}
	if !sellOK {
		sellFee = s.cfg.DefaultFee.Div(decimal.NewFromInt(2))
	}
	return buyFee, sellFee, buyFee.Add(sellFee)
}

// confidence scores how executable an opportunity looks, weighting the
// thinner side's liquidity and volume plus the profit margin. The ceiling
// keeps very liquid pairs from reading as certainties.
func (s *Scanner) confidence(profitPct decimal.Decimal, buy, sell domain.Quote) float64 {
	liqScore := ratioScore(decimal.Min(buy.Liquidity, sell.Liquidity), liquidityRef)
	volScore := ratioScore(decimal.Min(buy.Volume24h, sell.Volume24h), volumeRef)
	profScore := ratioScore(profitPct, decimal.NewFromInt(5))

	score := (liqScore*0.4 + volScore*0.3 + profScore*0.3) * 100
	if score < 0 {
		score = 0
	}
	if score > s.cfg.MaxConfidence {
		score = s.cfg.MaxConfidence
	}
	return score
}

// ratioScore maps value/ref into [0, 1].
func ratioScore(value, ref decimal.Decimal) float64 {
	if !value.IsPositive() || !ref.IsPositive() {
		return 0
	}
	r, _ := value.Div(ref).Float64()
	if r > 1 {
		return 1
	}
	return r
}

func rank(recs []domain.OpportunityRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].NetProfit.GreaterThan(recs[j].NetProfit)
	})
}
