package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
)

func TestCatalogSourceSelection(t *testing.T) {
	ctx := context.Background()

	src, pool, err := CatalogSource(ctx, &Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, pool)
	products, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 9)

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"p-1","name":"Tee","category":"apparel","sku":"T-1","price":4,"availabilityStatus":"in-stock"}]`), 0o600))
	src, pool, err = CatalogSource(ctx, &Config{CatalogSeedPath: path}, nil)
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.IsType(t, catalog.FileSource{}, src)
	products, err = src.Load(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p-1", products[0].ID)
}

func TestCatalogSourceBadDSN(t *testing.T) {
	_, pool, err := CatalogSource(context.Background(), &Config{PGDSN: "postgres://%zz"}, nil)
	require.Error(t, err)
	assert.Nil(t, pool)
}
