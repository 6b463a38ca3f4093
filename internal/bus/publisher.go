// Package bus fans detected opportunities and MEV alerts out to Redis
// Pub/Sub, so other processes can react without talking to this service's
// HTTP surface.
package bus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/chillman12/dexter3.0/internal/domain"
)

const (
	// OpportunityChannel carries emitted arbitrage opportunities.
	OpportunityChannel = "dexter:opportunities"

	// AlertChannel carries MEV alerts.
	AlertChannel = "dexter:alerts"
)

// queueSize bounds the publish backlog; publishes past it are dropped.
const queueSize = 256

// Config holds connection parameters for the Redis publisher.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

type message struct {
	channel string
	payload []byte
}

// Publisher pushes JSON payloads onto Redis Pub/Sub channels. Callers never
// block on Redis: payloads are queued onto a buffered channel and written by
// a single background goroutine, with drops logged when the queue is full.
type Publisher struct {
	rdb    *redis.Client
	logger *slog.Logger
	queue  chan message
	done   chan struct{}
}

// New connects to Redis, verifies the connection with a ping, and starts the
// background writer.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Publisher, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("bus: ping: %w", err)
	}

	p := &Publisher{
		rdb:    rdb,
		logger: logger.With(slog.String("component", "bus")),
		queue:  make(chan message, queueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// PublishOpportunity queues an opportunity record for fan-out. It never
// blocks.
func (p *Publisher) PublishOpportunity(rec domain.OpportunityRecord) {
	p.enqueue(OpportunityChannel, rec)
}

// PublishAlert queues a MEV alert for fan-out. It never blocks.
func (p *Publisher) PublishAlert(alert domain.MevAlert) {
	p.enqueue(AlertChannel, alert)
}

// Close stops the background writer and closes the Redis connection.
// Queued payloads are flushed first.
func (p *Publisher) Close() error {
	close(p.queue)
	<-p.done
	return p.rdb.Close()
}

func (p *Publisher) enqueue(channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("bus payload marshal failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	select {
	case p.queue <- message{channel: channel, payload: payload}:
	default:
		p.logger.Warn("bus queue full, dropping payload", slog.String("channel", channel))
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		if err := p.rdb.Publish(context.Background(), msg.channel, msg.payload).Err(); err != nil {
			p.logger.Warn("bus publish failed",
				slog.String("channel", msg.channel),
				slog.String("error", err.Error()),
			)
		}
	}
}
