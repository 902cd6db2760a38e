package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/language"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string     `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  slog.Level `envconfig:"LOG_LEVEL" default:"info"`

	// PGDSN is optional; when empty the catalog is read from CatalogSeedPath
	// or the embedded seed.
	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	CatalogSeedPath    string        `envconfig:"CATALOG_SEED_PATH"`
	CatalogCacheTTL    time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"10m"`
	CatalogLocale      string        `envconfig:"CATALOG_LOCALE" default:"en"`
	CatalogPageSize    int           `envconfig:"CATALOG_PAGE_SIZE" default:"24"`
	CatalogSearchLimit int           `envconfig:"CATALOG_SEARCH_LIMIT" default:"10"`

	BulkDebounce time.Duration `envconfig:"BULK_DEBOUNCE" default:"500ms"`
	CartTTL      time.Duration `envconfig:"CART_TTL" default:"72h"`

	ReindexCron        string `envconfig:"REINDEX_CRON" default:"@every 15m"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the portal cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.CatalogPageSize <= 0 {
		errs = append(errs, errors.New("CATALOG_PAGE_SIZE must be positive"))
	}
	if c.CatalogSearchLimit <= 0 {
		errs = append(errs, errors.New("CATALOG_SEARCH_LIMIT must be positive"))
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	if c.BulkDebounce <= 0 {
		errs = append(errs, errors.New("BULK_DEBOUNCE must be positive"))
	}
	if c.CartTTL <= 0 {
		errs = append(errs, errors.New("CART_TTL must be positive"))
	}
	if c.CatalogCacheTTL < 0 {
		errs = append(errs, errors.New("CATALOG_CACHE_TTL must not be negative"))
	}
	if _, err := language.Parse(c.CatalogLocale); err != nil {
		errs = append(errs, fmt.Errorf("CATALOG_LOCALE %q: %w", c.CatalogLocale, err))
	}
	return errors.Join(errs...)
}

// Locale returns the collation locale, falling back to English.
func (c *Config) Locale() language.Tag {
	if c == nil {
		return language.English
	}
	tag, err := language.Parse(c.CatalogLocale)
	if err != nil {
		return language.English
	}
	return tag
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
