package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "read_committed", cfg.Database.Tx.Isolation)
	assert.Equal(t, 5, cfg.Database.Tx.MaxRetries)
	assert.Equal(t, 20*time.Millisecond, cfg.Database.Tx.RetryBackoff)
	assert.Equal(t, 600*time.Second, cfg.Cache.CategoryTreeTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.Server.AllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("DB_TX_ISOLATION", "serializable")
	t.Setenv("DB_TX_MAX_RETRIES", "9")
	t.Setenv("CACHE_TTL_REVIEWS_LIST", "45s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com , https://admin.example.com")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "serializable", cfg.Database.Tx.Isolation)
	assert.Equal(t, 9, cfg.Database.Tx.MaxRetries)
	assert.Equal(t, 45*time.Second, cfg.Cache.ReviewsListTTL)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "SERVER_READ_TIMEOUT", "ten seconds"},
		{"bad storage driver", "STORAGE_DRIVER", "firestore"},
		{"bad isolation", "DB_TX_ISOLATION", "repeatable_read"},
		{"zero retries", "DB_TX_MAX_RETRIES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestConfig_GetDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5433", User: "shop", Password: "secret", Name: "catalog", SSLMode: "require",
	}}

	assert.Equal(t, "host=db port=5433 user=shop password=secret dbname=catalog sslmode=require", cfg.GetDSN())
}
