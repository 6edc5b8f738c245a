// Package mongostore implements the docstore query surface on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fintrack/internal/docstore"
)

const defaultServerSelectionTimeout = 5 * time.Second

// Store is a docstore.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

var _ docstore.Store = (*Store)(nil)

// Open connects to MongoDB. The returned error wraps core.ErrStorageUnavailable
// when no connection could be established; callers should refuse to start.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb uri is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongodb database name is required")
	}
	if cfg.ServerSelectionTimeout <= 0 {
		cfg.ServerSelectionTimeout = defaultServerSelectionTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := dial(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Connected to MongoDB", "database", cfg.Database)
	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

// EnsureIndexes declares uniqueness and query indexes. Creating an index that
// already exists with the same definition is a no-op on the server.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		docstore.Users: {
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetName("uniq_username").SetUnique(true),
			},
		},
		docstore.Transactions: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
				Options: options.Index().SetName("user_date"),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}},
				Options: options.Index().SetName("user_type"),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "category", Value: 1}},
				Options: options.Index().SetName("user_category"),
			},
		},
		docstore.Budgets: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "month", Value: 1}, {Key: "category", Value: 1}},
				Options: options.Index().SetName("uniq_user_month_category").SetUnique(true),
			},
		},
	}

	for _, name := range []string{docstore.Users, docstore.Transactions, docstore.Budgets} {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, specs[name]); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	s.logger.InfoContext(ctx, "MongoDB indexes ensured")
	return nil
}

func (s *Store) Collection(name string) docstore.Collection {
	switch name {
	case docstore.Users, docstore.Transactions, docstore.Budgets:
		return &collection{coll: s.db.Collection(name), name: name}
	default:
		return &collection{name: name, err: fmt.Errorf("%w: %s", docstore.ErrUnknownCollection, name)}
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Backend() string {
	return "mongo"
}

// DecodeID accepts 24-character hex ObjectIDs.
func (s *Store) DecodeID(id string) (any, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, docstore.ErrInvalidID
	}
	return oid, nil
}

func (s *Store) EncodeID(key any) string {
	return encodeID(key)
}

func encodeID(key any) string {
	switch k := key.(type) {
	case primitive.ObjectID:
		return k.Hex()
	case string:
		return k
	default:
		return fmt.Sprint(key)
	}
}
