package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted in DATA_BACKEND.
const (
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var validBackends = []string{BackendMongo, BackendSQLite, BackendPostgres}

type Config struct {
	// Backend selection
	DataBackend string

	// MongoDB
	MongoURI              string
	MongoDatabase         string
	MongoCAFile           string
	MongoInsecureFallback bool
	MongoConnectTimeout   time.Duration

	// Relational
	SQLiteDBPath string
	PostgresDSN  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reports
	RecentLimit  int
	ReportMonths int

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		DataBackend: getEnv("DATA_BACKEND", BackendSQLite),

		MongoURI:              getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:         getEnv("MONGODB_DB", "fintrack"),
		MongoCAFile:           getEnv("MONGODB_CA_FILE", ""),
		MongoInsecureFallback: getEnvBool("MONGODB_TLS_INSECURE_FALLBACK", false),
		MongoConnectTimeout:   getEnvDuration("MONGODB_CONNECT_TIMEOUT", 5*time.Second),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		RecentLimit:  getEnvInt("RECENT_LIMIT", 10),
		ReportMonths: getEnvInt("REPORT_MONTHS", 6),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			errors = append(errors, "MongoDB URI cannot be empty when using mongo backend")
		} else if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
			errors = append(errors, "invalid MongoDB URI scheme: must start with mongodb:// or mongodb+srv://")
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MongoDB database name cannot be empty when using mongo backend")
		}
		if c.MongoCAFile != "" {
			if _, err := os.Stat(c.MongoCAFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("MongoDB CA file does not exist: %s", c.MongoCAFile))
			}
		}
		if c.MongoConnectTimeout < 100*time.Millisecond || c.MongoConnectTimeout > 2*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid MongoDB connect timeout %v: must be between 100ms and 2m", c.MongoConnectTimeout))
		}

	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if strings.Contains(c.SQLiteDBPath, ":memory:") {
			errors = append(errors, "SQLite database path must be a file, in-memory databases are not supported")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}

	case BackendPostgres:
		if c.PostgresDSN == "" {
			errors = append(errors, "Postgres DSN cannot be empty when using postgres backend")
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RecentLimit < 1 || c.RecentLimit > 100 {
		errors = append(errors, fmt.Sprintf("invalid recent limit %d: must be between 1 and 100", c.RecentLimit))
	}
	if c.ReportMonths < 1 || c.ReportMonths > 36 {
		errors = append(errors, fmt.Sprintf("invalid report months %d: must be between 1 and 36", c.ReportMonths))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
