// Package sqlstore implements the docstore query surface over relational
// tables. The embedded SQLite dialect is the offline/dev fallback; the
// Postgres dialect serves the same documents from a networked server.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/docstore"
)

// sqlitePragmas keep concurrent writers waiting on the file lock instead of failing.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Config selects the dialect and connection of a Store.
type Config struct {
	Dialect string
	// DSN is a file path for SQLite and a connection string for Postgres.
	DSN    string
	Logger *slog.Logger
}

// Store is a docstore.Store backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	dsn     string
	logger  *slog.Logger
}

var _ docstore.Store = (*Store)(nil)

// Open connects, verifies the connection and bootstraps the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := dialectFor(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dsn := cfg.DSN
	if d.name == SQLite {
		if dsn == "" || strings.Contains(dsn, ":memory:") {
			return nil, fmt.Errorf("sqlite requires a database file path, got %q", dsn)
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?" + sqlitePragmas
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}

	if d.name == Postgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w: %w", d.name, core.ErrStorageUnavailable, err)
	}

	s := &Store{db: db, dialect: d, dsn: dsn, logger: logger}
	if err := s.EnsureIndexes(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "Opened relational store", "dialect", d.name)
	return s, nil
}

// EnsureIndexes applies the embedded migrations, which own tables and indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := runMigrations(s.dialect, s.dsn); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	s.logger.DebugContext(ctx, "Schema up to date", "dialect", s.dialect.name)
	return nil
}

func (s *Store) Collection(name string) docstore.Collection {
	t, ok := tables[name]
	if !ok {
		return missingCollection{name: name}
	}
	return &collection{store: s, table: t}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(_ context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Backend() string {
	return s.dialect.name
}

// DecodeID accepts canonical UUID strings only.
func (s *Store) DecodeID(id string) (any, error) {
	u, err := uuid.Parse(id)
	if err != nil || len(id) != 36 {
		return nil, docstore.ErrInvalidID
	}
	return u.String(), nil
}

func (s *Store) EncodeID(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case uuid.UUID:
		return k.String()
	default:
		return fmt.Sprint(key)
	}
}

// newID returns a time-ordered key so that ordering on _id follows insertion order.
func newID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return u.String(), nil
}

// missingCollection reports ErrUnknownCollection from every call.
type missingCollection struct{ name string }

func (m missingCollection) err() error {
	return fmt.Errorf("%w: %s", docstore.ErrUnknownCollection, m.name)
}

func (m missingCollection) FindOne(context.Context, docstore.Filter) (docstore.Document, error) {
	return nil, m.err()
}

func (m missingCollection) Find(context.Context, docstore.Filter) docstore.Cursor {
	return &cursor{err: m.err()}
}

func (m missingCollection) Insert(context.Context, docstore.Document) (string, error) {
	return "", m.err()
}

func (m missingCollection) UpdateFields(context.Context, docstore.Filter, docstore.Document) (int64, error) {
	return 0, m.err()
}

func (m missingCollection) DeleteOne(context.Context, docstore.Filter) (int64, error) {
	return 0, m.err()
}

func (m missingCollection) AggregateGroupSum(context.Context, docstore.Filter, []docstore.GroupKey, string) ([]docstore.Group, error) {
	return nil, m.err()
}
