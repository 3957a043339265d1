package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/taskhub/internal/infrastructure/postgres"
	"github.com/fastygo/taskhub/repository"
	"github.com/fastygo/taskhub/repository/bolt"
	"github.com/fastygo/taskhub/repository/postgres"
)

// storage is the persistence selected by STORAGE_DRIVER.
type storage struct {
	users repository.UserRepository
	tasks repository.TaskRepository
	check monitor.Check
	close func(ctx context.Context) error
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverBolt:
		store, err := bolt.Open(cfg.Storage.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		logger.Info("bolt store opened", zap.String("path", cfg.Storage.BoltPath))
		return &storage{
			users: store.Users(),
			tasks: store.Tasks(),
			check: monitor.Check{
				Name:     "bolt",
				Required: true,
				Ping:     func(context.Context) error { return store.Ping() },
			},
			close: func(context.Context) error { return store.Close() },
		}, nil
	default:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		return &storage{
			users: postgres.NewUserRepository(pool),
			tasks: postgres.NewTaskRepository(pool),
			check: monitor.Check{
				Name:     "postgresql",
				Required: true,
				Ping:     pool.Ping,
			},
			close: func(context.Context) error {
				pgInfra.Close(pool, logger)
				return nil
			},
		}, nil
	}
}
