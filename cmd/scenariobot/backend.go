package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/tgscenario/pkg/config"
	"github.com/dmitrymomot/tgscenario/pkg/diag"
	"github.com/dmitrymomot/tgscenario/pkg/scenario"
	"github.com/dmitrymomot/tgscenario/pkg/scenario/mongostore"
	"github.com/dmitrymomot/tgscenario/pkg/scenario/pgstore"
	"github.com/dmitrymomot/tgscenario/pkg/scenario/redisstore"
)

// backend bundles the persistence chosen by STORE_DRIVER.
type backend struct {
	store  scenario.Store
	locker scenario.Locker
	checks []diag.HealthCheck
	close  func()
}

func openBackend(ctx context.Context, driver string, log *slog.Logger) (*backend, error) {
	switch driver {
	case "", "memory":
		return &backend{
			store:  scenario.NewMemoryStore(),
			locker: scenario.NewLockRegistry(),
			close:  func() {},
		}, nil

	case "redis":
		var cfg redisstore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := redisstore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			store: redisstore.NewStore(client, redisstore.WithKeyPrefix(cfg.KeyPrefix)),
			locker: redisstore.NewLocker(client,
				redisstore.WithLockTTL(cfg.LockTTL),
				redisstore.WithLockRefresh(cfg.LockRefresh),
				redisstore.WithLockPrefix(cfg.KeyPrefix),
				redisstore.WithLogger(log),
			),
			checks: []diag.HealthCheck{redisstore.Healthcheck(client)},
			close:  func() { _ = client.Close() },
		}, nil

	case "postgres":
		var cfg pgstore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pgstore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool, cfg, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{
			store:  pgstore.NewStore(pool),
			locker: scenario.NewLockRegistry(),
			checks: []diag.HealthCheck{pgstore.Healthcheck(pool)},
			close:  pool.Close,
		}, nil

	case "mongo":
		var cfg mongostore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := mongostore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			store:  mongostore.NewStoreFromClient(client, cfg),
			locker: scenario.NewLockRegistry(),
			checks: []diag.HealthCheck{mongostore.Healthcheck(client)},
			close:  func() { _ = client.Disconnect(context.WithoutCancel(ctx)) },
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", driver)
}
