package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/duynhne/user-service/config"
	database "github.com/duynhne/user-service/internal/core"
	"github.com/duynhne/user-service/internal/core/domain"
	"github.com/duynhne/user-service/internal/core/repository/memory"
	"github.com/duynhne/user-service/internal/core/repository/mongodb"
	"github.com/duynhne/user-service/internal/core/repository/psql"
)

// store is the selected storage backend plus its lifecycle hooks
type store struct {
	repo  domain.UserRepository
	ping  func(ctx context.Context) error
	close func()
}

// openStore connects the backend named by DB_DRIVER
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, cfg.Database.BuildDSN()); err != nil {
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connection pool established",
			zap.String("host", cfg.Database.Host),
			zap.Int("max_connections", cfg.Database.MaxConnections),
		)
		return &store{
			repo:  psql.NewUserRepository(pool),
			ping:  pool.Ping,
			close: pool.Close,
		}, nil

	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		repo := mongodb.NewUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("MongoDB connected", zap.String("database", cfg.Mongo.Database))
		return &store{
			repo: repo,
			ping: func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		return &store{
			repo:  memory.NewUserRepository(),
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
}
