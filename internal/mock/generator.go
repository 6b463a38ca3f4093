// Package mock generates synthetic feed traffic for offline development. The
// generator emits the same wire envelopes the live endpoint produces, so the
// classifier and everything behind it run unchanged.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/chillman12/dexter3.0/internal/feed"
)

// GeneratorConfig holds configuration for the feed generator.
type GeneratorConfig struct {
	Pairs      []string
	Exchanges  []string
	BasePrices map[string]float64
	Interval   time.Duration
	Volatility float64
	// MevAlertChance is the per-tick probability of emitting a synthetic
	// MEV alert, in [0, 1].
	MevAlertChance float64
}

// DefaultGeneratorConfig returns a sensible default configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Pairs:     []string{"SOL/USDC", "ETH/USDC", "BTC/USDC"},
		Exchanges: []string{"Raydium", "Orca", "Jupiter", "Binance"},
		BasePrices: map[string]float64{
			"SOL/USDC": 100.0,
			"ETH/USDC": 3000.0,
			"BTC/USDC": 50000.0,
		},
		Interval:       time.Second,
		Volatility:     0.005, // 0.5% per tick
		MevAlertChance: 0.1,
	}
}

// Generator feeds synthetic envelopes to a frame handler on a fixed interval.
// Each exchange carries its own drifting price per pair, so cross-exchange
// spreads open and close over time.
type Generator struct {
	handler feed.FrameHandler
	config  GeneratorConfig
	logger  *slog.Logger

	// price per pair|exchange, drifting independently
	prices map[string]float64
	rng    *rand.Rand
}

// NewGenerator creates a generator with the given configuration.
func NewGenerator(handler feed.FrameHandler, config GeneratorConfig, logger *slog.Logger) *Generator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	prices := make(map[string]float64)
	for _, pair := range config.Pairs {
		base := config.BasePrices[pair]
		if base <= 0 {
			base = 100.0
		}
		for _, exchange := range config.Exchanges {
			// Spread the exchanges around the base so spreads exist from
			// the first tick.
			prices[pair+"|"+exchange] = base * (1 + (rng.Float64()-0.5)*0.01)
		}
	}

	return &Generator{
		handler: handler,
		config:  config,
		logger:  logger.With(slog.String("component", "mock_feed")),
		prices:  prices,
		rng:     rng,
	}
}

// Start runs the generator until the context is cancelled. It blocks, so run
// it in its own goroutine.
func (g *Generator) Start(ctx context.Context) {
	g.logger.Info("mock feed started",
		slog.Int("pairs", len(g.config.Pairs)),
		slog.Int("exchanges", len(g.config.Exchanges)),
		slog.Duration("interval", g.config.Interval),
	)

	ticker := time.NewTicker(g.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("mock feed stopped")
			return
		case <-ticker.C:
			g.tick(time.Now().UnixMilli())
		}
	}
}

// tick emits one round of envelopes: a price update per pair and exchange, a
// depth snapshot per pair, and occasionally a MEV alert.
func (g *Generator) tick(now int64) {
	for _, pair := range g.config.Pairs {
		for _, exchange := range g.config.Exchanges {
			g.emitPriceUpdate(pair, exchange, now)
		}
		g.emitMarketDepth(pair, now)
	}

	if g.rng.Float64() < g.config.MevAlertChance {
		g.emitMevAlert(now)
	}
}

func (g *Generator) emitPriceUpdate(pair, exchange string, now int64) {
	key := pair + "|" + exchange

	price := g.prices[key]
	price += g.rng.NormFloat64() * g.config.Volatility * price
	if price <= 0 {
		price = g.prices[key] * 0.99
	}
	g.prices[key] = price

	halfSpread := price * (0.0002 + g.rng.Float64()*0.0008)
	g.emit(feed.KindPriceUpdate, map[string]any{
		"pair":       pair,
		"exchange":   exchange,
		"price":      round(price),
		"bid":        round(price - halfSpread),
		"ask":        round(price + halfSpread),
		"volume_24h": round(1e6 + g.rng.Float64()*9e6),
		"liquidity":  round(1e5 + g.rng.Float64()*1.9e6),
		"change_24h": round((g.rng.Float64() - 0.5) * 10),
		"timestamp":  now,
	}, now)
}

func (g *Generator) emitMarketDepth(pair string, now int64) {
	exchange := g.config.Exchanges[g.rng.Intn(len(g.config.Exchanges))]
	mid := g.prices[pair+"|"+exchange]

	levels := func(side float64) []map[string]any {
		out := make([]map[string]any, 0, 5)
		total := 0.0
		for i := 1; i <= 5; i++ {
			size := 10 + g.rng.Float64()*90
			total += size
			out = append(out, map[string]any{
				"price": round(mid * (1 + side*float64(i)*0.001)),
				"size":  round(size),
				"total": round(total),
			})
		}
		return out
	}

	g.emit(feed.KindMarketDepth, map[string]any{
		"pair":      pair,
		"bids":      levels(-1),
		"asks":      levels(+1),
		"timestamp": now,
	}, now)
}

var threatTypes = []struct {
	name string
	risk string
}{
	{"sandwich_attack", "High"},
	{"frontrun", "Medium"},
	{"backrun", "Low"},
	{"liquidation_snipe", "Medium"},
}

func (g *Generator) emitMevAlert(now int64) {
	threat := threatTypes[g.rng.Intn(len(threatTypes))]
	pair := g.config.Pairs[g.rng.Intn(len(g.config.Pairs))]

	g.emit(feed.KindMevAlert, map[string]any{
		"id":              uuid.NewString(),
		"threat_type":     threat.name,
		"risk_level":      threat.risk,
		"description":     fmt.Sprintf("simulated %s detected on %s", threat.name, pair),
		"affected_tokens": []string{pair},
		"timestamp":       now,
	}, now)
}

// emit wraps the payload in a wire envelope and hands it to the frame
// handler, exactly as the read loop does for live traffic.
func (g *Generator) emit(kind string, payload map[string]any, now int64) {
	data, err := json.Marshal(payload)
	if err != nil {
		g.logger.Warn("mock payload marshal failed", slog.String("error", err.Error()))
		return
	}
	frame, err := json.Marshal(feed.Envelope{
		MessageType: kind,
		Data:        data,
		Timestamp:   now,
	})
	if err != nil {
		g.logger.Warn("mock envelope marshal failed", slog.String("error", err.Error()))
		return
	}
	g.handler.HandleFrame(frame)
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
