package app

import (
	"context"
	"fmt"

	"go-shortlink/internal/config"
	"go-shortlink/internal/infra/eventbus"
	httpdelivery "go-shortlink/internal/urlservice/delivery/http"
	"go-shortlink/internal/urlservice/usecase"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunURLService serves the shortening and redirect API until ctx is done. Click
// events go through a bounded forwarder onto the event channel. With the memory
// event channel an ingestor runs in this process as well.
func RunURLService(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	const op = "app.RunURLService"

	store, closeStore, err := openCodeStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closeStore()

	channel, err := openEventChannel(ctx, cfg, logger, "url-service")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer channel.close()

	if err := channel.declarer.DeclareDurableQueue(ctx, cfg.EventChannel.Queue); err != nil {
		return fmt.Errorf("%s: failed to declare queue: %w", op, err)
	}

	forwarder := eventbus.NewForwarder(channel.publisher, cfg.EventChannel.Queue, eventbus.ForwarderConfig{
		QueueSize:      cfg.Forwarder.QueueSize,
		Workers:        cfg.Forwarder.Workers,
		PublishTimeout: cfg.Forwarder.PublishTimeout,
	}, logger)

	allocator := usecase.NewAllocator(store, usecase.AllocatorConfig{
		CodeLength:  cfg.ShortCode.Length,
		MaxAttempts: cfg.ShortCode.MaxAttempts,
		DefaultTTL:  cfg.ShortCode.DefaultTTL,
	}, logger)
	resolver := usecase.NewResolver(store, forwarder, logger)

	handler := httpdelivery.NewHandler(allocator, resolver, cfg.HTTPServer.BaseURL, logger,
		httpdelivery.ReadinessCheck{Name: "code_store", Check: store.Ping},
		httpdelivery.ReadinessCheck{Name: "event_channel", Check: channel.ready},
	)
	rateLimiter := httpdelivery.NewRateLimiter(cfg.RateLimit.RequestsPerMinute)
	router := httpdelivery.NewRouter(handler, logger, rateLimiter)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rateLimiter.RunCleanup(gctx)
	})

	if channel.inProcess {
		cleanup, err := startIngestor(gctx, g, cfg, logger, channel, 1)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer cleanup()
	}

	// The embedded consumer is subscribed by now; the memory channel keeps nothing
	// for late subscribers.
	forwarder.Start(gctx)

	serve(gctx, g, serverConfig{
		Name:            "url-service",
		Addr:            cfg.HTTPServer.Addr(),
		ReadTimeout:     cfg.HTTPServer.ReadTimeout,
		WriteTimeout:    cfg.HTTPServer.WriteTimeout,
		IdleTimeout:     cfg.HTTPServer.IdleTimeout,
		ShutdownTimeout: cfg.HTTPServer.ShutdownTimeout,
	}, router, logger)

	logger.Info("url-service started",
		zap.String("base_url", cfg.HTTPServer.BaseURL),
		zap.String("code_store", cfg.CodeStore.Driver),
		zap.String("event_channel", cfg.EventChannel.Driver),
		zap.Int("rate_limit", cfg.RateLimit.RequestsPerMinute),
	)

	err = g.Wait()
	// Buffered events are published before the event channel closes.
	forwarder.Stop()
	return err
}
