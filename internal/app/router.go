package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/b2b-portal/internal/observability"
	"github.com/odyssey-erp/b2b-portal/internal/platform/httpx"
	portalhttp "github.com/odyssey-erp/b2b-portal/internal/portal/http"
	"github.com/odyssey-erp/b2b-portal/jobs"
)

// CatalogStatus reports the installed catalog version, 0 before the first load.
type CatalogStatus interface {
	Version() int64
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	PortalHandler *portalhttp.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
	Catalog       CatalogStatus
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		var version int64
		if params.Catalog != nil {
			version = params.Catalog.Version()
		}
		if version == 0 {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "loading"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ready", "catalogVersion": version})
	})

	if params.PortalHandler != nil {
		params.PortalHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
