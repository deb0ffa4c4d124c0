package app

import (
	"context"
	"errors"
	"fmt"

	analyticshttp "go-shortlink/internal/analytics/delivery/http"
	"go-shortlink/internal/analytics/ingestor"
	"go-shortlink/internal/analytics/usecase"
	"go-shortlink/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunIngestor consumes click events from the durable queue and serves the
// analytics API until ctx is done.
func RunIngestor(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	const op = "app.RunIngestor"

	if cfg.EventChannel.Driver == config.DriverMemory {
		return fmt.Errorf("%s: the memory event channel only works inside url-service", op)
	}

	channel, err := openEventChannel(ctx, cfg, logger, "ingestor")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer channel.close()

	g, gctx := errgroup.WithContext(ctx)

	cleanup, err := startIngestor(gctx, g, cfg, logger, channel, cfg.Ingestor.Consumers)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer cleanup()

	return g.Wait()
}

// startIngestor opens the analytics store, starts consumers on channel and serves
// the analytics API, all in g. The returned cleanup releases the store once g is done.
func startIngestor(ctx context.Context, g *errgroup.Group, cfg *config.Config, logger *zap.Logger, channel *eventChannel, consumers int) (func(), error) {
	const op = "app.startIngestor"

	if err := channel.declarer.DeclareDurableQueue(ctx, cfg.EventChannel.Queue); err != nil {
		return nil, fmt.Errorf("%s: failed to declare queue: %w", op, err)
	}

	store, closeStore, err := openClickStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	enricher, closeEnricher := openEnricher(cfg.Analytics.GeoIPPath, logger)
	cleanup := func() {
		closeEnricher()
		if err := closeStore(); err != nil {
			logger.Warn("failed to close analytics database", zap.Error(err))
		}
	}

	ing := ingestor.New(store, enricher, ingestor.Config{
		RequeueDelay: cfg.Ingestor.RequeueDelay,
	}, logger)

	if consumers < 1 {
		consumers = 1
	}
	for i := 0; i < consumers; i++ {
		g.Go(func() error {
			if err := ing.Run(ctx, channel.subscriber, cfg.EventChannel.Queue); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: consumer stopped: %w", op, err)
			}
			return nil
		})
	}
	if channel.awaitConsumer != nil {
		if err := channel.awaitConsumer(ctx, cfg.EventChannel.Queue); err != nil {
			cleanup()
			return nil, fmt.Errorf("%s: consumer did not subscribe: %w", op, err)
		}
	}

	service := usecase.NewAnalyticsService(store)
	handler := analyticshttp.NewHandler(service, logger,
		analyticshttp.ReadinessCheck{Name: "analytics_db", Check: store.Ping},
		analyticshttp.ReadinessCheck{Name: "event_channel", Check: channel.ready},
	)
	serve(ctx, g, serverConfig{
		Name: "ingestor",
		Addr: cfg.Ingestor.Addr(),
	}, analyticshttp.NewRouter(handler), logger)

	logger.Info("ingestor started",
		zap.String("queue", cfg.EventChannel.Queue),
		zap.String("analytics_driver", cfg.Analytics.Driver),
		zap.Bool("dead_letter", cfg.EventChannel.DeadLetter),
		zap.Int("consumers", consumers),
	)

	return cleanup, nil
}
