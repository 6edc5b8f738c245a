package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/docstore"
	"fintrack/internal/docstore/mongostore"
	"fintrack/internal/docstore/sqlstore"
	"fintrack/internal/storage"
)

const closeTimeout = 10 * time.Second

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. A store that cannot be
// reached yields an error wrapping core.ErrStorageUnavailable.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store docstore.Store
		err   error
	)
	switch config.Type {
	case MongoBackend:
		store, err = f.createMongoBackend(ctx, config)
	case SQLiteBackend:
		store, err = f.createSQLBackend(ctx, sqlstore.SQLite, config.SQLiteDBPath)
	case PostgresBackend:
		store, err = f.createSQLBackend(ctx, sqlstore.Postgres, config.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	return &BackendResult{
		Store:      store,
		Repository: storage.NewRepository(store, f.logger),
		Cleanup: func() error {
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			return store.Close(closeCtx)
		},
	}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (docstore.Store, error) {
	store, err := mongostore.Open(ctx, mongostore.Config{
		URI:                    config.MongoURI,
		Database:               config.MongoDatabase,
		CAFile:                 config.MongoCAFile,
		InsecureFallback:       config.MongoInsecureFallback,
		ServerSelectionTimeout: config.MongoConnectTimeout,
		Logger:                 f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB backend: %w", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = store.Close(context.Background())
		return nil, fmt.Errorf("failed to ensure MongoDB indexes: %w", err)
	}

	f.logger.Info("Initialized MongoDB backend",
		"database", config.MongoDatabase,
		"insecure_fallback", config.MongoInsecureFallback)
	return store, nil
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, dialect, dsn string) (docstore.Store, error) {
	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Dialect: dialect,
		DSN:     dsn,
		Logger:  f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", dialect, err)
	}

	if dialect == sqlstore.SQLite {
		f.logger.Info("Initialized SQLite backend", "db_path", dsn)
	} else {
		f.logger.Info("Initialized Postgres backend")
	}
	return store, nil
}
