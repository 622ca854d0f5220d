package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries all runtime configuration, loaded from the environment.
type Config struct {
	AppEnv           string
	LogLevel         string
	LogFormat        string
	HTTPListenAddr   string
	PublicBasePath   string
	MetricsNamespace string

	// DatabaseURL selects the Postgres backend; when empty, SQLitePath is
	// used instead.
	DatabaseURL string
	SQLitePath  string

	DBMinConns        int
	DBMaxConns        int
	DBMaxConnLifetime time.Duration
	DBMaxConnIdleTime time.Duration
	DBAcquireTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	B24URL          string
	B24ConnectorURL string
	B24Timeout      time.Duration
	B24CatalogBlock int

	CatalogRefreshInterval time.Duration
}

// Defaults for optional fields.
const (
	DefaultHTTPListenAddr         = ":8080"
	DefaultMetricsNamespace       = "b24bot"
	DefaultDBMinConns             = 2
	DefaultDBMaxConns             = 10
	DefaultDBMaxConnLifetime      = 30 * time.Minute
	DefaultDBMaxConnIdleTime      = 30 * time.Second
	DefaultDBAcquireTimeout       = 30 * time.Second
	DefaultB24Timeout             = 15 * time.Second
	DefaultB24CatalogBlock        = 14
	DefaultCatalogRefreshInterval = 15 * time.Minute
)

// Load reads configuration from the environment. The .env file, if any, is
// loaded by main before this runs.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", DefaultHTTPListenAddr),
		PublicBasePath:   getEnv("PUBLIC_BASE_PATH", ""),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", DefaultMetricsNamespace),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		B24URL:          getEnv("B24_URL", ""),
		B24ConnectorURL: getEnv("B24_CONNECTOR_URL", ""),
	}

	var err error
	if cfg.DBMinConns, err = getEnvInt("DB_MIN_CONNS", DefaultDBMinConns); err != nil {
		return nil, err
	}
	if cfg.DBMaxConns, err = getEnvInt("DB_MAX_CONNS", DefaultDBMaxConns); err != nil {
		return nil, err
	}
	if cfg.DBMaxConnLifetime, err = getEnvDuration("DB_MAX_CONN_LIFETIME", DefaultDBMaxConnLifetime); err != nil {
		return nil, err
	}
	if cfg.DBMaxConnIdleTime, err = getEnvDuration("DB_MAX_CONN_IDLE_TIME", DefaultDBMaxConnIdleTime); err != nil {
		return nil, err
	}
	if cfg.DBAcquireTimeout, err = getEnvDuration("DB_ACQUIRE_TIMEOUT", DefaultDBAcquireTimeout); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisTLS, err = getEnvBool("REDIS_TLS", false); err != nil {
		return nil, err
	}
	if cfg.B24Timeout, err = getEnvDuration("B24_TIMEOUT", DefaultB24Timeout); err != nil {
		return nil, err
	}
	if cfg.B24CatalogBlock, err = getEnvInt("B24_CATALOG_BLOCK", DefaultB24CatalogBlock); err != nil {
		return nil, err
	}
	if cfg.CatalogRefreshInterval, err = getEnvDuration("CATALOG_REFRESH_INTERVAL", DefaultCatalogRefreshInterval); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required fields are set and values are sane.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		return fmt.Errorf("one of DATABASE_URL or SQLITE_PATH is required")
	}
	if c.B24URL == "" {
		return fmt.Errorf("B24_URL is required")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
	}
	if c.CatalogRefreshInterval < time.Minute {
		return fmt.Errorf("CATALOG_REFRESH_INTERVAL must be at least 1m")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}
