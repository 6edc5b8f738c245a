package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug", log.ComponentCLI)
	if logger.Component() != log.ComponentCLI {
		t.Errorf("Component() = %q, want %q", logger.Component(), log.ComponentCLI)
	}
	if !logger.Enabled(context.Background(), -4) {
		t.Error("debug level should be enabled")
	}

	logger = SetupLogger("bogus", log.ComponentWorker)
	if logger.Enabled(context.Background(), -4) {
		t.Error("unknown level should fall back to info")
	}
}

func TestOpenBackend(t *testing.T) {
	logger := SetupLogger("error", log.ComponentCLI)
	ctx := context.Background()

	res, err := OpenBackend(ctx, logger, &config.Config{
		DataBackend:  config.BackendSQLite,
		SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db"),
	})
	if err != nil {
		t.Fatalf("OpenBackend() unexpected error: %v", err)
	}
	if got := res.Store.Backend(); got != "sqlite" {
		t.Errorf("Backend() = %q, want sqlite", got)
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup() unexpected error: %v", err)
	}

	_, err = OpenBackend(ctx, logger, &config.Config{
		DataBackend:         config.BackendMongo,
		MongoURI:            "mongodb://127.0.0.1:1",
		MongoDatabase:       "fintrack",
		MongoConnectTimeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("OpenBackend() error = %v, want storage unavailable", err)
	}
}

func TestInitAMQPDisabled(t *testing.T) {
	logger := SetupLogger("error", log.ComponentCLI)
	if c := InitAMQP(logger, &config.Config{}); c != nil {
		t.Error("InitAMQP() without URL should return nil")
	}
}
