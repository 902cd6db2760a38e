package facets

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
)

// FilterType controls how a facet is rendered and matched.
type FilterType string

const (
	Checkbox FilterType = "checkbox"
	Boolean  FilterType = "boolean"
	Range    FilterType = "range"
)

// FilterAttributeDef describes one filterable product field. Checkbox and
// boolean definitions provide Values; range definitions provide Number.
type FilterAttributeDef struct {
	Key        string
	Label      string
	Type       FilterType
	Filterable bool
	Values     func(catalog.Product) []string
	Number     func(catalog.Product) (float64, bool)
}

// Registry is the static set of filter definitions plus per-category whitelists.
type Registry struct {
	defs       []FilterAttributeDef
	byKey      map[string]int
	categories map[string][]string
}

var (
	// ErrDuplicateKey indicates two definitions sharing a key.
	ErrDuplicateKey = errors.New("facets: duplicate filter key")
	// ErrMissingExtractor indicates a definition without the extractor its type needs.
	ErrMissingExtractor = errors.New("facets: missing extractor")
	// ErrUnknownSource indicates a registry file naming an unknown extractor.
	ErrUnknownSource = errors.New("facets: unknown source")
)

// NewRegistry validates and indexes the definitions.
func NewRegistry(defs ...FilterAttributeDef) (*Registry, error) {
	r := &Registry{byKey: make(map[string]int, len(defs)), categories: map[string][]string{}}
	for _, def := range defs {
		if def.Key == "" {
			return nil, errors.New("facets: filter key required")
		}
		if _, dup := r.byKey[def.Key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, def.Key)
		}
		switch def.Type {
		case Checkbox, Boolean:
			if def.Values == nil {
				return nil, fmt.Errorf("%w: %s needs Values", ErrMissingExtractor, def.Key)
			}
		case Range:
			if def.Number == nil {
				return nil, fmt.Errorf("%w: %s needs Number", ErrMissingExtractor, def.Key)
			}
		default:
			return nil, fmt.Errorf("facets: %s has unsupported type %q", def.Key, def.Type)
		}
		r.byKey[def.Key] = len(r.defs)
		r.defs = append(r.defs, def)
	}
	return r, nil
}

// Defs returns the definitions in registration order.
func (r *Registry) Defs() []FilterAttributeDef {
	if r == nil {
		return nil
	}
	out := make([]FilterAttributeDef, len(r.defs))
	copy(out, r.defs)
	return out
}

// Lookup finds a definition by key.
func (r *Registry) Lookup(key string) (FilterAttributeDef, bool) {
	if r == nil {
		return FilterAttributeDef{}, false
	}
	i, ok := r.byKey[key]
	if !ok {
		return FilterAttributeDef{}, false
	}
	return r.defs[i], true
}

// MustLookup is Lookup for keys the caller wired itself; an unknown key is a bug.
func (r *Registry) MustLookup(key string) FilterAttributeDef {
	def, ok := r.Lookup(key)
	if !ok {
		panic(fmt.Sprintf("facets: filter %q is not registered", key))
	}
	return def
}

// AllowedKeys returns the whitelist for a category, or nil when the category
// has none (meaning every filterable key applies).
func (r *Registry) AllowedKeys(category string) []string {
	if r == nil {
		return nil
	}
	keys, ok := r.categories[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return nil
	}
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// SetAllowedKeys installs a category whitelist. Every key must be registered.
func (r *Registry) SetAllowedKeys(category string, keys []string) error {
	for _, key := range keys {
		if _, ok := r.byKey[key]; !ok {
			return fmt.Errorf("facets: category %s references unknown filter %q", category, key)
		}
	}
	r.categories[strings.ToLower(strings.TrimSpace(category))] = append([]string(nil), keys...)
	return nil
}

type registryFile struct {
	Filters []struct {
		Key        string `yaml:"key"`
		Label      string `yaml:"label"`
		Type       string `yaml:"type"`
		Filterable bool   `yaml:"filterable"`
		Source     string `yaml:"source"`
	} `yaml:"filters"`
	Categories map[string][]string `yaml:"categories"`
}

// LoadRegistry reads a YAML registry definition. Each entry names a built-in
// extractor via its source field.
func LoadRegistry(r io.Reader) (*Registry, error) {
	var file registryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("facets: decode registry: %w", err)
	}
	defs := make([]FilterAttributeDef, 0, len(file.Filters))
	for _, f := range file.Filters {
		def := FilterAttributeDef{Key: f.Key, Label: f.Label, Type: FilterType(f.Type), Filterable: f.Filterable}
		if err := bindSource(&def, f.Source); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	reg, err := NewRegistry(defs...)
	if err != nil {
		return nil, err
	}
	for category, keys := range file.Categories {
		if err := reg.SetAllowedKeys(category, keys); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

//go:embed registry.yaml
var defaultRegistryYAML []byte

// DefaultRegistry returns the registry shipped with the portal.
func DefaultRegistry() *Registry {
	reg, err := LoadRegistry(bytes.NewReader(defaultRegistryYAML))
	if err != nil {
		panic(err)
	}
	return reg
}

const variantAttributePrefix = "variant_attribute:"

func bindSource(def *FilterAttributeDef, source string) error {
	if name, ok := strings.CutPrefix(source, variantAttributePrefix); ok && name != "" {
		def.Values = func(p catalog.Product) []string { return p.AttributeValues(name) }
		return nil
	}
	switch source {
	case "brand":
		def.Values = func(p catalog.Product) []string { return scalar(p.Brand) }
	case "category":
		def.Values = func(p catalog.Product) []string { return scalar(p.Category) }
	case "material":
		def.Values = func(p catalog.Product) []string { return scalar(p.Material) }
	case "availability":
		def.Values = func(p catalog.Product) []string { return scalar(string(p.Availability)) }
	case "badges":
		def.Values = func(p catalog.Product) []string {
			out := make([]string, len(p.Badges))
			for i, b := range p.Badges {
				out[i] = string(b)
			}
			return out
		}
	case "tags":
		def.Values = func(p catalog.Product) []string { return p.Tags }
	case "on_sale":
		def.Values = func(p catalog.Product) []string { return flag(p.OnSale()) }
	case "in_stock":
		def.Values = func(p catalog.Product) []string {
			return flag(p.Availability == catalog.InStock || p.Availability == catalog.LowStock)
		}
	case "price":
		def.Number = func(p catalog.Product) (float64, bool) { return p.Price, true }
	default:
		return fmt.Errorf("%w: %q for %s", ErrUnknownSource, source, def.Key)
	}
	return nil
}

func scalar(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}

func flag(v bool) []string {
	return []string{strconv.FormatBool(v)}
}
