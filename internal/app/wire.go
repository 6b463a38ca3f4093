package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chillman12/dexter3.0/internal/bus"
	"github.com/chillman12/dexter3.0/internal/config"
	"github.com/chillman12/dexter3.0/internal/domain"
	"github.com/chillman12/dexter3.0/internal/feed"
	"github.com/chillman12/dexter3.0/internal/mock"
	"github.com/chillman12/dexter3.0/internal/retention"
	"github.com/chillman12/dexter3.0/internal/scanner"
	"github.com/chillman12/dexter3.0/internal/server"
	"github.com/chillman12/dexter3.0/internal/server/handler"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Stores     feed.Stores
	Stats      *feed.Stats
	Classifier *feed.Classifier
	Scanner    *scanner.Scanner

	// Client is set in live mode, Generator in mock mode.
	Client    *feed.Client
	Generator *mock.Generator

	Publisher *bus.Publisher // nil when Redis fan-out is disabled
	Server    *server.Server // nil when the HTTP server is disabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Retention stores ---
	deps.Stores = feed.Stores{
		Quotes:        retention.New[domain.Quote](cfg.Stores.Quotes, retention.Insertion, domain.Quote.Key),
		Opportunities: retention.New[domain.OpportunityRecord](cfg.Stores.Opportunities, retention.NewestFirst, domain.OpportunityRecord.Key),
		Alerts:        retention.New[domain.MevAlert](cfg.Stores.Alerts, retention.NewestFirst, domain.MevAlert.Key),
		Depth:         retention.New[domain.DepthSnapshot](cfg.Stores.Depth, retention.NewestFirst, domain.DepthSnapshot.Key),
		Executions:    retention.New[domain.ExecutionUpdate](cfg.Stores.Executions, retention.NewestFirst, domain.ExecutionUpdate.Key),
	}
	deps.Stats = &feed.Stats{}

	// --- Redis fan-out (optional) ---
	if cfg.Redis.Enabled {
		publisher, err := bus.New(ctx, bus.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = publisher.Close() })
		deps.Publisher = publisher
	}

	// --- Scanner ---
	var publisher scanner.Publisher
	if deps.Publisher != nil {
		publisher = deps.Publisher
	}
	exchangeFees := make(map[string]decimal.Decimal, len(cfg.Scanner.ExchangeFees))
	for name, fee := range cfg.Scanner.ExchangeFees {
		exchangeFees[name] = decimal.NewFromFloat(fee)
	}
	deps.Scanner = scanner.New(scanner.Config{
		ProfitThreshold: decimal.NewFromFloat(cfg.Scanner.ProfitThreshold),
		DefaultFee:      decimal.NewFromFloat(cfg.Scanner.DefaultFee),
		ExchangeFees:    exchangeFees,
		TradeNotional:   decimal.NewFromFloat(cfg.Scanner.TradeNotional),
		Expiry:          cfg.Scanner.Expiry.Duration,
		MaxConfidence:   cfg.Scanner.MaxConfidence,
	}, deps.Stores.Quotes, deps.Stores.Opportunities, publisher, logger)

	// --- Classifier ---
	deps.Classifier = feed.NewClassifier(deps.Stores, deps.Stats, logger)
	deps.Classifier.OnQuoteUpsert = func(pair string) {
		deps.Scanner.ScanPair(pair)
	}
	if deps.Publisher != nil {
		deps.Classifier.OnMevAlert = deps.Publisher.PublishAlert
	}

	// --- Feed source: live client or mock generator ---
	switch strings.ToLower(cfg.Mode) {
	case "live":
		registry := feed.NewRegistry(cfg.Feed.Channels)
		deps.Client = feed.NewClient(feed.ClientConfig{
			URL:                  cfg.Feed.URL,
			ReconnectBaseDelay:   cfg.Feed.ReconnectBaseDelay.Duration,
			ReconnectMaxDelay:    cfg.Feed.ReconnectMaxDelay.Duration,
			MaxReconnectAttempts: cfg.Feed.MaxReconnectAttempts,
		}, registry, deps.Classifier, deps.Stats, logger)
		closers = append(closers, func() { _ = deps.Client.Close() })
	case "mock":
		deps.Generator = mock.NewGenerator(deps.Classifier, mock.GeneratorConfig{
			Pairs:          cfg.Mock.Pairs,
			Exchanges:      cfg.Mock.Exchanges,
			BasePrices:     cfg.Mock.BasePrices,
			Interval:       cfg.Mock.Interval.Duration,
			Volatility:     cfg.Mock.Volatility,
			MevAlertChance: cfg.Mock.MevAlertChance,
		}, logger)
	}

	// --- HTTP server ---
	if cfg.Server.Enabled {
		var feedStatus handler.FeedStatus
		var execute *handler.ExecuteHandler
		if deps.Client != nil {
			feedStatus = deps.Client
			execute = handler.NewExecuteHandler(feed.NewDispatcher(deps.Client), logger)
		} else {
			// Mock mode has no upstream connection; report a synthetic
			// connected state and leave intents unregistered.
			feedStatus = mockFeedStatus{stats: deps.Stats}
		}

		deps.Server = server.NewServer(server.Config{
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
		}, server.Handlers{
			Health: handler.NewHealthHandler(feedStatus, logger),
			Dashboard: handler.NewDashboardHandler(
				feedStatus,
				deps.Stores.Quotes,
				deps.Scanner,
				deps.Stores.Alerts,
				deps.Stores.Depth,
				deps.Stores.Executions,
				logger,
			),
			Execute: execute,
		}, logger)
	}

	return deps, cleanup, nil
}

// mockFeedStatus satisfies handler.FeedStatus when running against the
// synthetic generator.
type mockFeedStatus struct {
	stats *feed.Stats
}

func (m mockFeedStatus) State() domain.ConnectionState { return domain.StateConnected }
func (m mockFeedStatus) Stats() domain.ConnectionStats { return m.stats.Snapshot() }
