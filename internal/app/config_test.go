package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Empty(t, cfg.PGDSN)
	assert.Equal(t, 24, cfg.CatalogPageSize)
	assert.Equal(t, 10, cfg.CatalogSearchLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.BulkDebounce)
	assert.Equal(t, 72*time.Hour, cfg.CartTTL)
	assert.Equal(t, language.English, cfg.Locale())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CATALOG_LOCALE", "sv")
	t.Setenv("CATALOG_PAGE_SIZE", "48")
	t.Setenv("REINDEX_CRON", "*/5 * * * *")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, language.Swedish, cfg.Locale())
	assert.Equal(t, 48, cfg.CatalogPageSize)
	assert.Equal(t, "*/5 * * * *", cfg.ReindexCron)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"CATALOG_PAGE_SIZE":     "0",
		"CATALOG_SEARCH_LIMIT":  "-1",
		"RATE_LIMIT_PER_MINUTE": "0",
		"CATALOG_LOCALE":        "not a tag!",
		"CART_TTL":              "0s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadConfigMalformedDuration(t *testing.T) {
	t.Setenv("BULK_DEBOUNCE", "soon")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestNilConfigLocale(t *testing.T) {
	var cfg *Config
	assert.Equal(t, language.English, cfg.Locale())
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
