package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go-shortlink/internal/analytics/database"
	"go-shortlink/internal/analytics/enrichment"
	"go-shortlink/internal/analytics/repository/postgres"
	"go-shortlink/internal/analytics/repository/sqlite"
	"go-shortlink/internal/analytics/usecase"
	"go-shortlink/internal/codestore"
	"go-shortlink/internal/config"
	"go-shortlink/internal/infra/eventbus"
	"go-shortlink/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func openCodeStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (codestore.Store, func() error, error) {
	const op = "app.openCodeStore"

	if cfg.CodeStore.Driver == config.DriverMemory {
		logger.Warn("using in-memory code store, mappings are lost on restart")
		return codestore.NewMemoryStore(), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: invalid redis url: %w", op, err)
	}
	rdb := redis.NewClient(opts)
	store := codestore.NewRedisStore(rdb, cfg.Redis.KeyPrefix)

	if err := retry.Startup(ctx, logger, "redis", cfg.Startup.Attempts, cfg.Startup.Delay, store.Ping); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("redis connected", zap.String("addr", opts.Addr))

	return store, rdb.Close, nil
}

// eventChannel bundles one event channel driver behind the eventbus interfaces.
type eventChannel struct {
	publisher  eventbus.Publisher
	subscriber eventbus.Subscriber
	declarer   eventbus.QueueDeclarer
	ready      func(ctx context.Context) error
	close      func() error
	// inProcess is true when messages never leave this process.
	inProcess bool
	// awaitConsumer blocks until queue has a consumer. Set only for channels that
	// drop messages published before anyone subscribes.
	awaitConsumer func(ctx context.Context, queue string) error
}

func openEventChannel(ctx context.Context, cfg *config.Config, logger *zap.Logger, name string) (*eventChannel, error) {
	const op = "app.openEventChannel"

	if cfg.EventChannel.Driver == config.DriverMemory {
		bus := eventbus.NewEventBus(eventbus.NewZapLoggerAdapter(logger))
		return &eventChannel{
			publisher:  bus,
			subscriber: bus,
			declarer:   bus,
			ready:      func(context.Context) error { return nil },
			close:      bus.Close,
			inProcess:  true,

			awaitConsumer: bus.WaitForSubscriber,
		}, nil
	}

	conn, err := eventbus.Dial(ctx, eventbus.ConnectionConfig{
		URL:             cfg.EventChannel.URL,
		Name:            name,
		ReconnectDelay:  cfg.EventChannel.ReconnectDelay,
		StartupAttempts: cfg.Startup.Attempts,
		DeadLetter:      cfg.EventChannel.DeadLetter,
		Prefetch:        cfg.EventChannel.Prefetch,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	publisher := eventbus.NewAMQPPublisher(conn)
	return &eventChannel{
		publisher:  publisher,
		subscriber: eventbus.NewAMQPSubscriber(conn, logger),
		declarer:   conn,
		ready: func(context.Context) error {
			if !conn.IsConnected() {
				return eventbus.ErrNotConnected
			}
			return nil
		},
		close: func() error {
			publisher.Close()
			return conn.Close()
		},
	}, nil
}

func openClickStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (usecase.ClickStore, func() error, error) {
	const op = "app.openClickStore"

	if cfg.Analytics.Driver == config.DriverSQLite {
		path := cfg.Analytics.SQLitePath
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to create data directory: %w", op, err)
		}
		db, err := database.OpenSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := database.RunMigrations(db, database.DriverSQLite); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("analytics database initialized", zap.String("driver", database.DriverSQLite), zap.String("path", path))
		return sqlite.NewClickStore(db), db.Close, nil
	}

	db, err := database.OpenPostgres(cfg.Analytics.DSN, database.PoolConfig{
		MaxOpenConns:    cfg.Analytics.MaxOpenConns,
		MaxIdleConns:    cfg.Analytics.MaxIdleConns,
		ConnMaxLifetime: cfg.Analytics.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := retry.Startup(ctx, logger, "postgres", cfg.Startup.Attempts, cfg.Startup.Delay, db.PingContext); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := database.RunMigrations(db.DB, database.DriverPostgres); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("analytics database initialized", zap.String("driver", database.DriverPostgres))
	return postgres.NewClickStore(db), db.Close, nil
}

// openEnricher loads the GeoIP database when configured. Without it country
// resolution reports Unknown.
func openEnricher(path string, logger *zap.Logger) (*enrichment.Enricher, func()) {
	var countries enrichment.CountryResolver
	closeFn := func() {}

	if path != "" {
		resolver, err := enrichment.NewGeoIPResolver(path)
		if err != nil {
			logger.Warn("GeoIP database not available, country resolution disabled",
				zap.Error(err),
				zap.String("path", path),
			)
		} else {
			logger.Info("GeoIP database loaded successfully", zap.String("path", path))
			countries = resolver
			closeFn = func() { resolver.Close() }
		}
	}

	return enrichment.NewEnricher(countries), closeFn
}
