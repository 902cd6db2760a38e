package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed seed/catalog.json
var seedFS embed.FS

// Source supplies the raw product records for a snapshot.
type Source interface {
	Load(ctx context.Context) ([]Product, error)
}

// SourceFunc adapts a plain function into a Source.
type SourceFunc func(ctx context.Context) ([]Product, error)

// Load implements Source.
func (f SourceFunc) Load(ctx context.Context) ([]Product, error) {
	return f(ctx)
}

// FileSource reads a JSON array of products from a filesystem.
type FileSource struct {
	FS   fs.FS
	Path string
}

// NewSeedSource returns the catalog bundled with the binary.
func NewSeedSource() FileSource {
	return FileSource{FS: seedFS, Path: "seed/catalog.json"}
}

// NewFileSource reads products from a path on disk.
func NewFileSource(path string) FileSource {
	return FileSource{FS: os.DirFS(filepath.Dir(path)), Path: filepath.Base(path)}
}

// Load implements Source.
func (s FileSource) Load(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := fs.ReadFile(s.FS, s.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", s.Path, err)
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", s.Path, err)
	}
	return products, nil
}
