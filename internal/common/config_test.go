package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, "gpt-4", cfg.LLM.ScoringModel)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, float32(0.0), cfg.LLM.Temperature)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 12000, cfg.LLM.MaxInputChars)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 4, cfg.Ingest.BatchWorkers)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DECKSCAN_STORE", "SQLITE")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("LLM_MAX_RETRIES", "5")
	t.Setenv("LLM_TIMEOUT", "10s")
	t.Setenv("BATCH_WORKERS", "2")
	t.Setenv("INPUT_WATCH", "true")

	cfg := LoadConfig()

	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.LLM.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2, cfg.Ingest.BatchWorkers)
	assert.True(t, cfg.Ingest.Watch)
}

func TestLoadConfigBadValuesFallBack(t *testing.T) {
	t.Setenv("LLM_MAX_RETRIES", "not-a-number")
	t.Setenv("LLM_TIMEOUT", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid memory store",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.LLM.APIKey = "" },
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "unknown store backend",
			mutate:  func(c *Config) { c.Store.Backend = "redis" },
			wantErr: "DECKSCAN_STORE",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Store.Backend = StorePostgres },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Ingest.BatchWorkers = 0 },
			wantErr: "BATCH_WORKERS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			cfg.LLM.APIKey = "sk-test"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
