package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/b2b-portal/internal/observability"
	"github.com/odyssey-erp/b2b-portal/jobs"
)

func newTestRouter(t *testing.T, cfg *Config) (http.Handler, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{
		Logger:     NewLogger(cfg),
		Config:     cfg,
		JobHandler: jobs.NewHandler(nil, nil),
		Metrics:    metrics,
	})
	return router, metrics
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router, _ := newTestRouter(t, &Config{AppEnv: "test", RateLimitPerMinute: 100})

	rec := get(router, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	rec = get(router, "/jobs/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queue":"default"`)
}

func TestRouterExposesRequestMetrics(t *testing.T) {
	router, _ := newTestRouter(t, &Config{AppEnv: "test", RateLimitPerMinute: 100})

	require.Equal(t, http.StatusOK, get(router, "/healthz").Code)
	rec := get(router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `b2b_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRouterRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, &Config{AppEnv: "test", RateLimitPerMinute: 2})

	require.Equal(t, http.StatusOK, get(router, "/healthz").Code)
	require.Equal(t, http.StatusOK, get(router, "/healthz").Code)
	rec := get(router, "/healthz")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouterUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, get(router, "/nope").Code)
}

type staticCatalog int64

func (c staticCatalog) Version() int64 { return int64(c) }

func TestRouterReadiness(t *testing.T) {
	router, _ := newTestRouter(t, &Config{AppEnv: "test", RateLimitPerMinute: 100})
	rec := get(router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	for _, tc := range []struct {
		version int64
		code    int
		body    string
	}{
		{0, http.StatusServiceUnavailable, `{"status":"loading"}`},
		{3, http.StatusOK, `{"status":"ready","catalogVersion":3}`},
	} {
		router := NewRouter(RouterParams{
			Config:  &Config{AppEnv: "test", RateLimitPerMinute: 100},
			Catalog: staticCatalog(tc.version),
		})
		rec := get(router, "/readyz")
		assert.Equal(t, tc.code, rec.Code)
		assert.JSONEq(t, tc.body, rec.Body.String())
	}
}
