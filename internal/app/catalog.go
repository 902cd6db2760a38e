package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	"github.com/odyssey-erp/b2b-portal/internal/platform/db"
)

// CatalogSource picks the product source from configuration: PostgreSQL when
// PG_DSN is set, otherwise CATALOG_SEED_PATH, otherwise the embedded seed.
// The returned pool is nil unless PostgreSQL is used; the caller closes it.
func CatalogSource(ctx context.Context, cfg *Config, logger *slog.Logger) (catalog.Source, *pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case cfg != nil && cfg.PGDSN != "":
		pool, err := db.New(ctx, cfg.PGDSN, db.WithApplicationName("b2b-portal"))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("catalog source", slog.String("kind", "postgres"))
		return catalog.NewPostgresSource(pool), pool, nil
	case cfg != nil && cfg.CatalogSeedPath != "":
		logger.Info("catalog source", slog.String("kind", "file"), slog.String("path", cfg.CatalogSeedPath))
		return catalog.NewFileSource(cfg.CatalogSeedPath), nil, nil
	default:
		logger.Info("catalog source", slog.String("kind", "embedded seed"))
		return catalog.NewSeedSource(), nil, nil
	}
}
