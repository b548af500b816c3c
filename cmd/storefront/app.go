package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"goflare.io/storefront"
	"goflare.io/storefront/catalog"
	"goflare.io/storefront/config"
	"goflare.io/storefront/driver"
	"goflare.io/storefront/models/enum"
	"goflare.io/storefront/store"
)

const closeTimeout = 10 * time.Second

// app is one CLI invocation's wiring; close releases it in reverse order.
type app struct {
	svc     storefront.Service
	logger  *zap.Logger
	closers []func()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(os.Getenv)
	if err != nil {
		return nil, err
	}
	if flagStore != "" {
		cfg.Store = enum.StoreBackend(strings.ToLower(flagStore))
	}
	if flagCatalogURL != "" {
		cfg.CatalogURL = strings.TrimRight(flagCatalogURL, "/")
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagDebug {
		cfg.Debug = true
	}
	return cfg, cfg.Validate()
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = driver.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	kv, err := a.openStore(ctx, cfg, rdb)
	if err != nil {
		a.close()
		return nil, err
	}

	var catalogRepo catalog.Repository = catalog.NewClient(cfg.CatalogURL, logger, catalog.WithTimeout(cfg.HTTPTimeout))
	if cfg.CatalogCache {
		catalogRepo = catalog.NewCachedClient(catalogRepo, rdb, cfg.CacheTTL, logger)
	}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = driver.ConnectNATS(cfg.NATSURL, "storefront-cli", logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, nc.Close)
	}

	a.svc = storefront.NewService(storefront.Config{
		Catalog:     catalogRepo,
		Store:       kv,
		NATS:        nc,
		TokenSecret: []byte(cfg.TokenSecret),
		Workers:     2,
	}, logger)

	if err = a.svc.RestoreSession(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (store.Store, error) {
	switch cfg.Store {
	case enum.StoreBackendMemory:
		return store.NewMemory(), nil
	case enum.StoreBackendRedis:
		return store.NewRedis(rdb, cfg.RedisPrefix, a.logger), nil
	case enum.StoreBackendPostgres:
		pool, err := driver.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		pg := store.NewPostgres(pool, driver.NewTransactionManager(pool, a.logger), a.logger)
		if err = pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		db, err := driver.OpenSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		return store.NewSQLite(ctx, db, a.logger)
	}
}

func (a *app) close() {
	if a.svc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := a.svc.Close(ctx); err != nil {
			a.logger.Error("Failed to close service", zap.Error(err))
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// withApp opens the app, runs fn and always closes, flushing pending cart saves.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}
