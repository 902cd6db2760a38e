package portalhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers catalog and bulk order endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	reloadLimiter := httprate.Limit(6, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/catalog", func(cr chi.Router) {
		cr.Get("/products", h.handleProducts)
		cr.Get("/categories", h.handleCategories)
		cr.Get("/facets", h.handleFacets)
		cr.Get("/search", h.handleSearch)
		cr.Get("/codes/{code}", h.handleCode)
		cr.With(reloadLimiter).Post("/reload", h.handleReload)
	})
	r.Route("/orders", func(or chi.Router) {
		or.Post("/bulk/parse", h.handleBulkParse)
		or.Post("/bulk/validate", h.handleBulkValidate)
		or.Post("/bulk/submit", h.handleBulkSubmit)
		or.Get("/cart", h.handleCart)
		or.Delete("/cart", h.handleClearCart)
	})
}
