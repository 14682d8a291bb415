package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/catalog-service/internal/adapter/cache"
	"github.com/example/catalog-service/internal/adapter/httpapi"
	"github.com/example/catalog-service/internal/adapter/memory"
	"github.com/example/catalog-service/internal/adapter/redisrepo"
	"github.com/example/catalog-service/internal/adapter/repo"
	"github.com/example/catalog-service/internal/config"
	"github.com/example/catalog-service/internal/domain"
	"github.com/example/catalog-service/internal/metrics"
	"github.com/example/catalog-service/internal/usecase"
)

// openRepository builds the configured backend, seeds it when asked and
// wraps it in the cache. The returned func releases the backend.
func openRepository(ctx context.Context, cfg config.Config, log *zap.Logger, now time.Time) (domain.DeviceRepository, func(), error) {
	backend, closeFn, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.SeedExamples && cfg.Storage.Driver != config.DriverMemory {
		n, err := seedIfEmpty(ctx, backend, memory.ExampleDevices(now))
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("seeding %s: %w", cfg.Storage.Driver, err)
		}
		if n > 0 {
			log.Info("seeded example devices", zap.Int("count", n))
		}
	}
	if !cfg.Cache.Enabled {
		return backend, closeFn, nil
	}
	cached := cache.NewCachedDeviceRepo(backend, cfg.Cache.TTL)
	n, err := cached.Warm(ctx)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("warming cache: %w", err)
	}
	log.Info("cache warmed", zap.Int("devices", n), zap.Duration("ttl", cfg.Cache.TTL))
	return cached, closeFn, nil
}

func openBackend(ctx context.Context, cfg config.Config) (domain.DeviceRepository, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		var seed []domain.Device
		if cfg.Storage.SeedExamples {
			seed = memory.ExampleDevices(time.Now())
		}
		return memory.NewDeviceRepo(seed...), func() {}, nil

	case config.DriverSQLite:
		db, err := repo.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureSQLiteSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init schema: %w", err)
		}
		return repo.NewSQLiteDeviceRepo(db), func() { _ = db.Close() }, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("init schema: %w", err)
		}
		return repo.NewPostgresDeviceRepo(pool), pool.Close, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisrepo.New(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// seedIfEmpty saves devices only into an empty repository.
func seedIfEmpty(ctx context.Context, r domain.DeviceRepository, devices []domain.Device) (int, error) {
	existing, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for _, d := range devices {
		if _, err := r.Save(ctx, d); err != nil {
			return 0, err
		}
	}
	return len(devices), nil
}

func newUseCases(r domain.DeviceRepository, now usecase.Clock) httpapi.UseCases {
	return httpapi.UseCases{
		List:   usecase.ListDevices{Repo: r},
		Get:    usecase.GetDevice{Repo: r},
		Upsert: usecase.UpsertDevice{Repo: r, Now: now},
		Delete: usecase.DeleteDevice{Repo: r},
	}
}

func newServer(r domain.DeviceRepository, log *zap.Logger, m *metrics.Metrics) *httpapi.Server {
	return httpapi.NewServer(newUseCases(r, time.Now), log.Named("http"), m)
}
