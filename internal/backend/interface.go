package backend

import (
	"context"
	"time"

	"fintrack/internal/docstore"
	"fintrack/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the opened store, the repository over it and the
// function releasing its connections.
type BackendResult struct {
	Store      docstore.Store
	Repository *storage.Repository
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the configured store and ensures its indexes.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// MongoDB specific
	MongoURI              string
	MongoDatabase         string
	MongoCAFile           string
	MongoInsecureFallback bool
	MongoConnectTimeout   time.Duration

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresDSN string
}

// BackendType represents the type of backend
type BackendType string

const (
	MongoBackend    BackendType = "mongo"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MongoBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
