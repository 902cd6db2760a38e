package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSourceLoads(t *testing.T) {
	products, err := NewSeedSource().Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 9)
	assert.Equal(t, "p-ft26-101", products[0].ID)
	require.Len(t, products[0].Variants, 4)
	assert.Equal(t, "CKK-FT26-101", products[0].Variants[0].SKU)
	assert.Equal(t, InStock, products[0].Variants[0].Availability)
}

func TestFileSourceFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"p-1","name":"Mug","availabilityStatus":"in-stock","price":4}]`), 0o600))

	products, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 4.0, products[0].Price)
}

func TestFileSourceErrors(t *testing.T) {
	src := FileSource{FS: fstest.MapFS{"bad.json": {Data: []byte("{")}}, Path: "bad.json"}
	_, err := src.Load(context.Background())
	require.ErrorContains(t, err, "decode bad.json")

	src.Path = "missing.json"
	_, err = src.Load(context.Background())
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSeedSource().Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
