package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// serverShutdownTimeout bounds graceful HTTP shutdown on exit.
const serverShutdownTimeout = 10 * time.Second

// LiveMode connects to the upstream feed and serves the API until the context
// is cancelled. A failed initial dial is not fatal; the client keeps retrying
// with backoff while the rest of the service runs.
func (a *App) LiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting live mode")

	if err := deps.Client.Open(ctx); err != nil {
		a.logger.WarnContext(ctx, "initial feed connect failed, reconnecting in background",
			slog.String("error", err.Error()),
		)
	}

	g, ctx := errgroup.WithContext(ctx)

	a.runServer(ctx, g, deps)

	g.Go(func() error {
		<-ctx.Done()
		return deps.Client.Close()
	})

	return ignoreCancel(g.Wait())
}

// MockMode runs the synthetic feed generator against the same classifier and
// API surface. No upstream connection is made.
func (a *App) MockMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting mock mode")

	g, ctx := errgroup.WithContext(ctx)

	a.runServer(ctx, g, deps)

	g.Go(func() error {
		deps.Generator.Start(ctx)
		return ctx.Err()
	})

	return ignoreCancel(g.Wait())
}

// runServer starts the HTTP server, if enabled, and shuts it down gracefully
// when the context ends.
func (a *App) runServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Server == nil {
		return
	}
	g.Go(func() error {
		return deps.Server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return deps.Server.Shutdown(shutdownCtx)
	})
}

// ignoreCancel maps context cancellation to a clean exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
