// Package config reads storefront settings from STOREFRONT_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"goflare.io/storefront/catalog"
	"goflare.io/storefront/models/enum"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	defaultCacheTTL    = 10 * time.Minute
	defaultSecret      = "storefront-demo-secret"
	sqliteFile         = "storefront.db"
)

type Config struct {
	CatalogURL    string
	HTTPTimeout   time.Duration
	CatalogCache  bool
	CacheTTL      time.Duration
	Store         enum.StoreBackend
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	PostgresDSN   string
	NATSURL       string
	TokenSecret   string
	Debug         bool
}

// Load reads and validates the process environment.
func Load() (*Config, error) {
	cfg, err := LoadFrom(os.Getenv)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom parses settings from getenv without validating them, so callers can
// apply overrides first and then call Validate.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		CatalogURL:    catalog.DefaultBaseURL,
		HTTPTimeout:   defaultHTTPTimeout,
		CacheTTL:      defaultCacheTTL,
		Store:         enum.StoreBackendSQLite,
		RedisAddr:     getenv("STOREFRONT_REDIS_ADDR"),
		RedisPassword: getenv("STOREFRONT_REDIS_PASSWORD"),
		RedisPrefix:   "storefront:",
		PostgresDSN:   getenv("STOREFRONT_POSTGRES_DSN"),
		NATSURL:       getenv("STOREFRONT_NATS_URL"),
		TokenSecret:   defaultSecret,
	}

	if v := getenv("STOREFRONT_CATALOG_URL"); v != "" {
		cfg.CatalogURL = strings.TrimRight(v, "/")
	}
	if v := getenv("STOREFRONT_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("STOREFRONT_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if v := getenv("STOREFRONT_CATALOG_CACHE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("STOREFRONT_CATALOG_CACHE: %w", err)
		}
		cfg.CatalogCache = b
	}
	if v := getenv("STOREFRONT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("STOREFRONT_CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}
	if v := getenv("STOREFRONT_STORE"); v != "" {
		cfg.Store = enum.StoreBackend(strings.ToLower(v))
	}
	if v := getenv("STOREFRONT_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("STOREFRONT_REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	if v := getenv("STOREFRONT_REDIS_PREFIX"); v != "" {
		cfg.RedisPrefix = v
	}
	if v := getenv("STOREFRONT_TOKEN_SECRET"); v != "" {
		cfg.TokenSecret = v
	}
	if v := getenv("STOREFRONT_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("STOREFRONT_DEBUG: %w", err)
		}
		cfg.Debug = b
	}

	cfg.DataDir = getenv("STOREFRONT_DATA_DIR")
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".storefront")
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if !c.Store.Valid() {
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	if c.Store == enum.StoreBackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("store backend redis requires STOREFRONT_REDIS_ADDR")
	}
	if c.Store == enum.StoreBackendPostgres && c.PostgresDSN == "" {
		return fmt.Errorf("store backend postgres requires STOREFRONT_POSTGRES_DSN")
	}
	if c.CatalogCache && c.RedisAddr == "" {
		return fmt.Errorf("catalog cache requires STOREFRONT_REDIS_ADDR")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, sqliteFile)
}
