package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/gidoku/internal/config"
	"github.com/fastygo/gidoku/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/gidoku/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/gidoku/internal/infrastructure/redis"
	"github.com/fastygo/gidoku/internal/services"
	"github.com/fastygo/gidoku/internal/services/lifecycle"
	"github.com/fastygo/gidoku/repository"
	boltRepo "github.com/fastygo/gidoku/repository/bolt"
	"github.com/fastygo/gidoku/repository/memory"
	"github.com/fastygo/gidoku/repository/postgres"
	redisRepo "github.com/fastygo/gidoku/repository/redis"
	"github.com/fastygo/gidoku/repository/sqlite"
)

func openKeyValueStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (repository.KeyValueStore, monitor.Check, error) {
	switch cfg.Store.Driver {
	case "redis":
		client, err := redisInfra.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, monitor.Check{}, err
		}
		manager.RegisterCloser("redis", client)
		return redisRepo.NewKeyValueStore(client), monitor.Check{Name: "redis", Probe: redisInfra.Probe(client)}, nil

	case "bolt":
		store, err := boltRepo.Open(cfg.Store.BoltPath, "kv")
		if err != nil {
			return nil, monitor.Check{}, err
		}
		manager.RegisterCloser("bolt", store)

		startSweeper(store, cfg, manager, logger)

		probe := func(context.Context) error {
			_, err := store.Size()
			return err
		}
		return store, monitor.Check{Name: "bolt", Probe: probe}, nil

	case "memory":
		logger.Warn("using in-process key/value store; sessions do not survive restarts")
		store := memory.New()
		startSweeper(store, cfg, manager, logger)
		return store, monitor.Check{Name: "memory", Probe: func(context.Context) error { return nil }, Optional: true}, nil
	}
	return nil, monitor.Check{}, fmt.Errorf("unsupported key/value driver %q", cfg.Store.Driver)
}

// startSweeper purges expired keys for stores without native expiry.
func startSweeper(store services.Expirer, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) {
	sweeper := services.NewKVSweeper(store, cfg.Store.SweepInterval, logger)
	sweeper.Start()
	manager.Register("kv_sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})
}

func openUserRepository(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (repository.UserRepository, monitor.Check, error) {
	switch cfg.Database.Driver {
	case "postgres":
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, monitor.Check{}, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, monitor.Check{}, err
		}
		manager.Register("postgres", func(context.Context) error {
			pool.Close()
			return nil
		})
		return postgres.NewUserRepository(pool), monitor.Check{Name: "postgres", Probe: pool.Ping, Timeout: 2 * time.Second}, nil

	case "sqlite":
		repo, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, monitor.Check{}, err
		}
		manager.RegisterCloser("sqlite", repo)
		logger.Info("opened sqlite user store", zap.String("path", cfg.Database.SQLitePath))
		return repo, monitor.Check{Name: "sqlite", Probe: repo.Ping}, nil
	}
	return nil, monitor.Check{}, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}
