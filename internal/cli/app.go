package cli

import (
	"context"
	"errors"
	"fmt"

	"nosam/internal/amqp"
	"nosam/internal/backend"
	"nosam/internal/cache"
	"nosam/internal/config"
	"nosam/internal/core"
	"nosam/internal/currency"
	"nosam/internal/facade"
	"nosam/internal/log"
	"nosam/internal/products"
	"nosam/internal/rates"
	"nosam/internal/services"
	"nosam/internal/settings"
	"nosam/internal/store"
)

const collectionCacheSize = 64

// App is the assembled object store with everything built on top of it.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Backend   *backend.BackendResult
	Store     *store.Store
	Client    *facade.Client
	Table     *currency.Table
	Settings  *settings.Settings
	Refresher *rates.Refresher
	Catalog   *products.Catalog
	Stats     *services.StatsService
	// Events is nil when AMQP is not configured or unreachable.
	Events *amqp.Client
	Caches *cache.Manager
}

// NewApp opens the configured medium and wires the store, the facade and
// the services over it. A broker that cannot be reached is logged and
// skipped.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Backend: res,
		Table:   currency.Default(),
		Caches:  cache.NewManager(logger),
	}

	opts := []store.Option{store.WithLogger(logger)}
	if cfg.CacheTTL > 0 {
		lru := cache.NewLRUCache[[]core.StoredObject](collectionCacheSize, cfg.CacheTTL)
		app.Caches.Register(lru)
		app.Caches.StartCleanup(cfg.CacheTTL)
		opts = append(opts, store.WithCache(lru))
	}
	if cfg.AMQPURL != "" {
		events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			logger.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			app.Events = events
			opts = append(opts, store.WithNotifier(events))
		}
	}

	app.Store, err = store.Open(ctx, res.Medium, opts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.Client = facade.New(app.Store, logger)
	app.Settings = settings.New(res.Medium, app.Table)

	var source rates.Source = rates.StaticSource{}
	if cfg.RatesSourceURL != "" {
		source = rates.NewHTTPSource(cfg.RatesSourceURL)
	}
	app.Refresher = rates.NewRefresher(app.Table, app.Settings, source, logger)
	if _, err := app.Refresher.Restore(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to read stored exchange rates", log.FieldError, err)
	}
	app.Catalog = products.NewCatalog(app.Store, logger)
	app.Stats = services.NewStatsService(app.Client, app.Table, app.Settings, logger)
	return app, nil
}

// Close drains the facade and releases the broker and the medium.
func (a *App) Close() error {
	var errs []error
	if a.Client != nil {
		if err := a.Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("facade: %w", err))
		}
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	a.Caches.Stop()
	if a.Backend != nil && a.Backend.Cleanup != nil {
		if err := a.Backend.Cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("backend: %w", err))
		}
	}
	return errors.Join(errs...)
}
