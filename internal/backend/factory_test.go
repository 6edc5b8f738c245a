package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "memory"}); err == nil {
		t.Error("FromAppConfig should reject unknown backends")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:           "mongo",
		MongoURI:              "mongodb://db:27017",
		MongoDatabase:         "ledger",
		MongoInsecureFallback: true,
		MongoConnectTimeout:   3 * time.Second,
	})
	if err != nil {
		t.Fatalf("FromAppConfig() unexpected error: %v", err)
	}
	if cfg.Type != MongoBackend || cfg.MongoURI != "mongodb://db:27017" || cfg.MongoDatabase != "ledger" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
	if !cfg.MongoInsecureFallback || cfg.MongoConnectTimeout != 3*time.Second {
		t.Errorf("FromAppConfig() lost mongo connection settings: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"sqlite ok", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite missing path", Config{Type: SQLiteBackend}, true},
		{"mongo ok", Config{Type: MongoBackend, MongoURI: "mongodb://h", MongoDatabase: "d"}, false},
		{"mongo missing db", Config{Type: MongoBackend, MongoURI: "mongodb://h"}, true},
		{"postgres missing dsn", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	want := []string{"mongo", "sqlite", "postgres"}
	if len(got) != len(want) {
		t.Fatalf("GetBackendTypeStrings() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetBackendTypeStrings()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	res, err := f.CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend() unexpected error: %v", err)
	}
	if res.Store.Backend() != "sqlite" {
		t.Errorf("Backend() = %v, want sqlite", res.Store.Backend())
	}
	if res.Repository == nil {
		t.Fatal("CreateBackend() returned nil repository")
	}
	if _, err := res.Repository.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Errorf("CreateUser() unexpected error: %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup() unexpected error: %v", err)
	}
}

func TestCreateMongoBackendUnavailable(t *testing.T) {
	f := NewFactory(nil)
	_, err := f.CreateBackend(context.Background(), Config{
		Type:                MongoBackend,
		MongoURI:            "mongodb://127.0.0.1:1",
		MongoDatabase:       "fintrack",
		MongoConnectTimeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("CreateBackend() error = %v, want storage unavailable", err)
	}
}
