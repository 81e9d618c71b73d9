package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abgdnv/gocatalog/pkg/bootstrap"
	"github.com/abgdnv/gocatalog/pkg/config"
)

// New opens the backend selected by cfg.Driver.
// For PostgreSQL the embedded migrations are applied first when cfg.Postgres.Migrate is set.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Driver {
	case config.DriverFile:
		s, err := NewFileStore(cfg.File.Dir)
		if err != nil {
			return nil, err
		}
		logger.Info("Using file storage", slog.String("dir", cfg.File.Dir))
		return s, nil

	case config.DriverMongo:
		s, err := NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("Successfully connected to MongoDB", slog.String("database", cfg.Mongo.Database))
		return s, nil

	case config.DriverPostgres:
		if cfg.Postgres.Migrate {
			if err := Migrate(cfg.Postgres.URL); err != nil {
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Postgres.URL, cfg.Postgres.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("Successfully connected to the database!")
		return NewPgStore(dbPool), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
