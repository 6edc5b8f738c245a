package mongostore

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"fintrack/internal/core"
)

// Config holds the connection settings consumed by Open.
type Config struct {
	URI      string
	Database string
	// CAFile replaces the system roots for the verified handshake when set.
	CAFile string
	// InsecureFallback allows a second attempt that skips certificate
	// verification. Development only.
	InsecureFallback bool
	// ServerSelectionTimeout bounds each connection attempt.
	ServerSelectionTimeout time.Duration
	Logger                 *slog.Logger
}

// needsTLS reports whether the URI asks for an encrypted connection.
func needsTLS(uri string) bool {
	if strings.HasPrefix(uri, "mongodb+srv://") {
		return true
	}
	q := strings.ToLower(uri)
	if i := strings.Index(q, "?"); i >= 0 {
		q = q[i+1:]
	} else {
		return false
	}
	for _, kv := range strings.Split(q, "&") {
		if kv == "tls=true" || kv == "ssl=true" {
			return true
		}
	}
	return false
}

// connect dials and pings once with the given TLS settings.
func connect(ctx context.Context, cfg Config, tlsConfig *tls.Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ServerSelectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}

func verifiedTLS(caFile string) (*tls.Config, error) {
	if caFile == "" {
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates in %s", caFile)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// dial connects with a verified handshake and degrades at most once to an
// unverified one. Any final failure is core.ErrStorageUnavailable.
func dial(ctx context.Context, cfg Config, logger *slog.Logger) (*mongo.Client, error) {
	if !needsTLS(cfg.URI) {
		client, err := connect(ctx, cfg, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: mongodb: %v", core.ErrStorageUnavailable, err)
		}
		return client, nil
	}

	secure, err := verifiedTLS(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("%w: mongodb: %v", core.ErrStorageUnavailable, err)
	}
	client, err := connect(ctx, cfg, secure)
	if err == nil {
		return client, nil
	}
	if !cfg.InsecureFallback {
		return nil, fmt.Errorf("%w: mongodb: %v", core.ErrStorageUnavailable, err)
	}

	logger.WarnContext(ctx, "Secure connection to MongoDB failed, retrying without certificate verification",
		"error", err)

	client, err2 := connect(ctx, cfg, &tls.Config{InsecureSkipVerify: true}) //nolint:gosec // dev fallback
	if err2 != nil {
		logger.ErrorContext(ctx, "Fallback connection to MongoDB failed", "error", err2)
		return nil, fmt.Errorf("%w: mongodb: secure: %v; insecure: %v", core.ErrStorageUnavailable, err, err2)
	}
	logger.WarnContext(ctx, "Connected to MongoDB with certificate verification disabled (development fallback)")
	return client, nil
}
