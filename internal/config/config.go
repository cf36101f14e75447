package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Env       string
	LogLevel  string
	Storage   string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	MigrationsDir   string
	Tx              TxConfig
}

// TxConfig controls how review submission transactions behave under contention
type TxConfig struct {
	Isolation    string
	MaxRetries   int
	RetryBackoff time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled bool
	URL     string
}

// CacheConfig holds caching TTL configuration
type CacheConfig struct {
	ProductTTL      time.Duration
	ReviewsListTTL  time.Duration
	CategoryTreeTTL time.Duration
}

// RateLimitConfig limits review submissions per client IP
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads configuration from environment variables and returns a Config struct
func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("STORAGE_DRIVER", StoragePostgres)

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "storefront")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("DB_AUTO_MIGRATE", false)
	viper.SetDefault("DB_MIGRATIONS_DIR", "migrations")
	viper.SetDefault("DB_TX_ISOLATION", "read_committed")
	viper.SetDefault("DB_TX_MAX_RETRIES", 5)
	viper.SetDefault("DB_TX_RETRY_BACKOFF", "20ms")

	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("NATS_ENABLED", true)
	viper.SetDefault("NATS_URL", "nats://localhost:4222")

	viper.SetDefault("CACHE_TTL_PRODUCT", "300s")
	viper.SetDefault("CACHE_TTL_REVIEWS_LIST", "120s")
	viper.SetDefault("CACHE_TTL_CATEGORY_TREE", "600s")

	viper.SetDefault("RATE_LIMIT_RPS", 1.0)
	viper.SetDefault("RATE_LIMIT_BURST", 5)

	durations := map[string]*time.Duration{}
	var (
		readTimeout, writeTimeout, shutdownTimeout time.Duration
		connMaxLifetime, txRetryBackoff            time.Duration
		productTTL, reviewsListTTL, treeTTL        time.Duration
	)
	durations["SERVER_READ_TIMEOUT"] = &readTimeout
	durations["SERVER_WRITE_TIMEOUT"] = &writeTimeout
	durations["SERVER_SHUTDOWN_TIMEOUT"] = &shutdownTimeout
	durations["DB_CONN_MAX_LIFETIME"] = &connMaxLifetime
	durations["DB_TX_RETRY_BACKOFF"] = &txRetryBackoff
	durations["CACHE_TTL_PRODUCT"] = &productTTL
	durations["CACHE_TTL_REVIEWS_LIST"] = &reviewsListTTL
	durations["CACHE_TTL_CATEGORY_TREE"] = &treeTTL

	for key, dst := range durations {
		d, err := time.ParseDuration(viper.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	storage := strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	if storage != StoragePostgres && storage != StorageMemory {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: %q", storage)
	}

	isolation := strings.ToLower(viper.GetString("DB_TX_ISOLATION"))
	if isolation != "read_committed" && isolation != "serializable" {
		return nil, fmt.Errorf("invalid DB_TX_ISOLATION: %q", isolation)
	}

	maxRetries := viper.GetInt("DB_TX_MAX_RETRIES")
	if maxRetries < 1 {
		return nil, fmt.Errorf("invalid DB_TX_MAX_RETRIES: must be at least 1, got %d", maxRetries)
	}

	allowedOriginsStr := viper.GetString("CORS_ALLOWED_ORIGINS")
	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	config := &Config{
		Env:      viper.GetString("ENV"),
		LogLevel: viper.GetString("LOG_LEVEL"),
		Storage:  storage,
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  allowedOrigins,
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
			AutoMigrate:     viper.GetBool("DB_AUTO_MIGRATE"),
			MigrationsDir:   viper.GetString("DB_MIGRATIONS_DIR"),
			Tx: TxConfig{
				Isolation:    isolation,
				MaxRetries:   maxRetries,
				RetryBackoff: txRetryBackoff,
			},
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			Enabled: viper.GetBool("NATS_ENABLED"),
			URL:     viper.GetString("NATS_URL"),
		},
		Cache: CacheConfig{
			ProductTTL:      productTTL,
			ReviewsListTTL:  reviewsListTTL,
			CategoryTreeTTL: treeTTL,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             viper.GetInt("RATE_LIMIT_BURST"),
		},
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
