package facets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
)

func sampleProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "1", Name: "Tee", Brand: "Cascade", Category: "apparel", Price: 10, Availability: catalog.InStock,
			Badges: []catalog.Badge{catalog.BadgeBestseller},
			VariantAttributes: []catalog.VariantAttribute{{Name: "Size", Values: []string{"S", "M"}}},
			Variants: []catalog.Variant{
				{ID: "1a", SKU: "T-S", Attributes: map[string]string{"Size": "S"}},
				{ID: "1b", SKU: "T-M", Attributes: map[string]string{"Size": "M"}},
			}},
		{ID: "2", Name: "Sock", Brand: "Summit", Category: "apparel", Price: 5, Availability: catalog.LowStock,
			VariantAttributes: []catalog.VariantAttribute{{Name: "Size", Values: []string{"M"}}},
			Variants: []catalog.Variant{
				{ID: "2a", SKU: "S-M", Attributes: map[string]string{"Size": "M"}},
			}},
		{ID: "3", Name: "Boot", Brand: "Summit", Category: "footwear", Price: 60, Availability: catalog.OutOfStock},
		{ID: "4", Name: "Mug", Category: "home", Price: 6, Availability: catalog.InStock},
	}
}

func findFilter(t *testing.T, filters []ResolvedFilter, key string) ResolvedFilter {
	t.Helper()
	for _, f := range filters {
		if f.Key == key {
			return f
		}
	}
	t.Fatalf("filter %s not resolved", key)
	return ResolvedFilter{}
}

func hasFilter(filters []ResolvedFilter, key string) bool {
	for _, f := range filters {
		if f.Key == key {
			return true
		}
	}
	return false
}

func TestResolveCountsAndOrdering(t *testing.T) {
	filters := Resolve(sampleProducts(), DefaultRegistry(), nil)

	brand := findFilter(t, filters, "brand")
	// Summit appears twice; Cascade once; the brandless mug contributes nothing.
	require.Equal(t, []Option{{Value: "Summit", Count: 2}, {Value: "Cascade", Count: 1}}, brand.Options)

	size := findFilter(t, filters, "size")
	// M is carried by two products, S by one. The tee's two variants count once per value.
	require.Equal(t, []Option{{Value: "M", Count: 2}, {Value: "S", Count: 1}}, size.Options)
}

func TestResolveTiesKeepEncounterOrder(t *testing.T) {
	products := []catalog.Product{
		{ID: "1", Brand: "Zeta"},
		{ID: "2", Brand: "Alpha"},
		{ID: "3", Brand: "Mid"},
	}
	filters := Resolve(products, DefaultRegistry(), []string{"brand"})
	brand := findFilter(t, filters, "brand")
	values := make([]string, len(brand.Options))
	for i, o := range brand.Options {
		values[i] = o.Value
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, values)
}

func TestResolveOptionCountsMatchContributingPairs(t *testing.T) {
	reg := DefaultRegistry()
	products := sampleProducts()
	for _, f := range Resolve(products, reg, nil) {
		if f.Type == Range {
			continue
		}
		def := reg.MustLookup(f.Key)
		pairs := 0
		for _, p := range products {
			pairs += len(ExtractValues(def, p))
		}
		sum := 0
		for _, o := range f.Options {
			assert.Positive(t, o.Count, "filter %s option %s", f.Key, o.Value)
			sum += o.Count
		}
		assert.Equal(t, pairs, sum, "filter %s", f.Key)
	}
}

func TestResolveRangeSuppression(t *testing.T) {
	filters := Resolve(sampleProducts(), DefaultRegistry(), nil)
	price := findFilter(t, filters, "price")
	assert.Equal(t, 5.0, price.Min)
	assert.Equal(t, 60.0, price.Max)

	constant := []catalog.Product{{ID: "1", Price: 9}, {ID: "2", Price: 9}}
	assert.False(t, hasFilter(Resolve(constant, DefaultRegistry(), nil), "price"))
	assert.False(t, hasFilter(Resolve(nil, DefaultRegistry(), nil), "price"))
}

func TestResolveAllowedKeysAndFilterable(t *testing.T) {
	reg := DefaultRegistry()
	products := sampleProducts()
	products[0].Tags = []string{"cotton"}

	filters := Resolve(products, reg, []string{"brand", "tags"})
	require.Len(t, filters, 1)
	assert.Equal(t, "brand", filters[0].Key)

	for _, f := range Resolve(products, reg, nil) {
		assert.NotEqual(t, "tags", f.Key, "non-filterable definitions are never resolved")
	}
	assert.Empty(t, Resolve(products, reg, []string{}))
}

func TestResolveIsDeterministic(t *testing.T) {
	reg := DefaultRegistry()
	products := sampleProducts()
	assert.Equal(t, Resolve(products, reg, nil), Resolve(products, reg, nil))
}

func TestRegistryCategoryWhitelist(t *testing.T) {
	reg := DefaultRegistry()
	keys := reg.AllowedKeys("Footwear")
	assert.Contains(t, keys, "size")
	assert.NotContains(t, keys, "color")
	assert.Nil(t, reg.AllowedKeys("unknown"))
}

func TestLoadRegistryRejectsUnknownSource(t *testing.T) {
	_, err := LoadRegistry(strings.NewReader(`
filters:
  - key: weight
    label: Weight
    type: range
    filterable: true
    source: weight
`))
	require.ErrorIs(t, err, ErrUnknownSource)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	values := func(catalog.Product) []string { return nil }
	_, err := NewRegistry(
		FilterAttributeDef{Key: "brand", Type: Checkbox, Values: values},
		FilterAttributeDef{Key: "brand", Type: Checkbox, Values: values},
	)
	require.ErrorIs(t, err, ErrDuplicateKey)

	_, err = NewRegistry(FilterAttributeDef{Key: "price", Type: Range})
	require.ErrorIs(t, err, ErrMissingExtractor)
}

func TestMustLookupPanicsOnUnknownKey(t *testing.T) {
	assert.Panics(t, func() { DefaultRegistry().MustLookup("nope") })
}
