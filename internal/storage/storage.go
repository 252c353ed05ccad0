// Package storage builds the license repository selected by configuration.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/makkenzo/machine-license-api/internal/config"
	"github.com/makkenzo/machine-license-api/internal/domain/license"
	"github.com/makkenzo/machine-license-api/internal/storage/gormstore"
	"github.com/makkenzo/machine-license-api/internal/storage/memstorage"
	"github.com/makkenzo/machine-license-api/internal/storage/postgres"
	"github.com/makkenzo/machine-license-api/internal/storage/redis"
)

// Open connects the configured backend. The returned close function releases
// its connections and is never nil, even on error.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (license.Repository, func(), error) {
	noop := func() {}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if cfg.Database.URL == "" {
			return nil, noop, fmt.Errorf("database.url is required for driver %q", cfg.Store.Driver)
		}
		if cfg.Database.UseGorm {
			db, err := gormstore.OpenPostgres(cfg.Database.URL, logger)
			if err != nil {
				return nil, noop, err
			}
			return gormstore.NewLicenseRepository(db, logger), closeGorm(db, logger), nil
		}

		pool, err := postgres.NewPgxPool(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, noop, err
		}
		if err := postgres.EnsureSchema(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return postgres.NewLicenseRepository(pool, logger), pool.Close, nil

	case config.DriverRedis:
		if cfg.Redis.Addr == "" {
			return nil, noop, fmt.Errorf("redis.addr is required for driver %q", cfg.Store.Driver)
		}
		client, err := redis.NewRedisClient(ctx, &cfg.Redis, logger)
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}
		return redis.NewLicenseRepository(client, cfg.Redis.KeyPrefix, logger), closeFn, nil

	case config.DriverSQLite:
		db, err := gormstore.OpenSQLite(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, noop, err
		}
		return gormstore.NewLicenseRepository(db, logger), closeGorm(db, logger), nil

	case config.DriverMemory:
		logger.Warn("Using in-memory license store; data is lost on restart")
		return memstorage.NewLicenseRepository(), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func closeGorm(db *gorm.DB, logger *zap.Logger) func() {
	return func() {
		sqlDB, err := db.DB()
		if err != nil {
			logger.Warn("Failed to obtain sql.DB for close", zap.Error(err))
			return
		}
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}
