package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable via DECKSCAN_STORE.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Store  StoreConfig
	Server ServerConfig
	LLM    LLMConfig
	Ingest IngestConfig
	Export ExportConfig
}

// StoreConfig selects and tunes the aggregation store backend.
type StoreConfig struct {
	Backend          string
	SQLitePath       string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
}

// LLMConfig holds extraction client configuration
type LLMConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	ScoringModel  string
	Temperature   float32
	Timeout       time.Duration
	MaxRetries    int
	MaxInputChars int
}

// IngestConfig holds directory intake configuration
type IngestConfig struct {
	InputDir     string
	Watch        bool
	Debounce     time.Duration
	BatchWorkers int
}

// ExportConfig holds export output configuration
type ExportConfig struct {
	Dir string
}

// LoadDotenv loads a .env file if one exists. Missing files are fine;
// real environment variables always win.
func LoadDotenv() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:          strings.ToLower(getEnv("DECKSCAN_STORE", StoreMemory)),
			SQLitePath:       getEnv("SQLITE_PATH", "deckscan.db"),
			DSN:              getEnv("DATABASE_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			RequestTimeout: getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 120*time.Second),
		},
		LLM: LLMConfig{
			APIKey:        getEnv("OPENAI_API_KEY", ""),
			BaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:         getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			ScoringModel:  getEnv("OPENAI_SCORING_MODEL", "gpt-4"),
			Temperature:   getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
			MaxRetries:    getEnvAsInt("LLM_MAX_RETRIES", 3),
			MaxInputChars: getEnvAsInt("LLM_MAX_INPUT_CHARS", 12000),
		},
		Ingest: IngestConfig{
			InputDir:     getEnv("INPUT_DIR", ""),
			Watch:        getEnvAsBool("INPUT_WATCH", false),
			Debounce:     getEnvAsDuration("INPUT_DEBOUNCE", 500*time.Millisecond),
			BatchWorkers: getEnvAsInt("BATCH_WORKERS", 4),
		},
		Export: ExportConfig{
			Dir: getEnv("EXPORT_DIR", "."),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	switch c.Store.Backend {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.Store.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DATABASE_URL is required for the postgres store", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "DECKSCAN_STORE must be memory, sqlite, or postgres", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.LLM.MaxRetries < 0 {
		return NewAppError("CONFIG_ERROR", "LLM_MAX_RETRIES must be >= 0", ErrInvalidInput)
	}
	if c.Ingest.BatchWorkers < 1 {
		return NewAppError("CONFIG_ERROR", "BATCH_WORKERS must be >= 1", ErrInvalidInput)
	}
	return nil
}
