package catalog

import (
	"slices"
	"strings"
	"time"
)

// AvailabilityStatus enumerates stock states shown to retailers.
type AvailabilityStatus string

const (
	// InStock means the unit ships immediately.
	InStock AvailabilityStatus = "in-stock"
	// LowStock means only a few units remain.
	LowStock AvailabilityStatus = "low-stock"
	// OutOfStock means the unit cannot be ordered right now.
	OutOfStock AvailabilityStatus = "out-of-stock"
	// PreOrder means the unit is orderable ahead of arrival.
	PreOrder AvailabilityStatus = "pre-order"
)

// Badge is a merchandising marker attached to a product.
type Badge string

const (
	BadgeBestseller Badge = "Bestseller"
	BadgeNew        Badge = "New"
	BadgeSale       Badge = "Sale"
	BadgeExclusive  Badge = "Exclusive"
)

// VariantAttribute declares one dimension variants differ along, e.g. Size.
type VariantAttribute struct {
	Name   string   `json:"name" validate:"required"`
	Values []string `json:"values" validate:"min=1,dive,required"`
}

// Variant is one orderable SKU of a product family.
type Variant struct {
	ID           string             `json:"id" validate:"required"`
	SKU          string             `json:"sku" validate:"required"`
	UPC          string             `json:"upc,omitempty"`
	Attributes   map[string]string  `json:"attributes"`
	Price        float64            `json:"price" validate:"gte=0"`
	StockQty     int                `json:"stockQty" validate:"gte=0"`
	Availability AvailabilityStatus `json:"availabilityStatus" validate:"required,oneof=in-stock low-stock out-of-stock pre-order"`
}

// Codes returns the non-empty codes the variant can be ordered by.
func (v Variant) Codes() []string {
	return nonEmpty(v.SKU, v.UPC)
}

// Product is a product family. Products without variants are ordered by their own codes.
type Product struct {
	ID                string             `json:"id" validate:"required"`
	Name              string             `json:"name" validate:"required"`
	Brand             string             `json:"brand"`
	Description       string             `json:"description,omitempty"`
	Category          string             `json:"category"`
	SKU               string             `json:"sku,omitempty"`
	UPC               string             `json:"upc,omitempty"`
	Price             float64            `json:"price" validate:"gte=0"`
	OriginalPrice     float64            `json:"originalPrice,omitempty" validate:"gte=0"`
	Badges            []Badge            `json:"badges,omitempty"`
	Availability      AvailabilityStatus `json:"availabilityStatus" validate:"required,oneof=in-stock low-stock out-of-stock pre-order"`
	Tags              []string           `json:"tags,omitempty"`
	Material          string             `json:"material,omitempty"`
	MinOrderQty       int                `json:"minOrderQty,omitempty" validate:"gte=0"`
	CasePack          int                `json:"casePack,omitempty" validate:"gte=0"`
	Variants          []Variant          `json:"variants,omitempty" validate:"dive"`
	VariantAttributes []VariantAttribute `json:"variantAttributes,omitempty" validate:"dive"`
}

// HasBadge reports whether the product carries the badge.
func (p Product) HasBadge(b Badge) bool {
	return slices.Contains(p.Badges, b)
}

// OnSale reports whether the product is discounted against its original price.
func (p Product) OnSale() bool {
	return p.OriginalPrice > p.Price
}

// Codes returns the product-level codes.
func (p Product) Codes() []string {
	return nonEmpty(p.SKU, p.UPC)
}

// AttributeValues collects the distinct values of one variant attribute across variants.
func (p Product) AttributeValues(name string) []string {
	var out []string
	for _, v := range p.Variants {
		val, ok := v.Attributes[name]
		if !ok || val == "" || slices.Contains(out, val) {
			continue
		}
		out = append(out, val)
	}
	return out
}

// Snapshot is an immutable view of the catalog at load time.
type Snapshot struct {
	Version  int64     `json:"version"`
	Products []Product `json:"products"`
	LoadedAt time.Time `json:"loadedAt"`
}

// InCategory narrows products to one category. An empty category keeps everything.
func InCategory(products []Product, category string) []Product {
	category = strings.TrimSpace(category)
	if category == "" {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}

// Categories lists distinct categories in first-seen order.
func Categories(products []Product) []string {
	var out []string
	for _, p := range products {
		if p.Category == "" || slices.Contains(out, p.Category) {
			continue
		}
		out = append(out, p.Category)
	}
	return out
}

// NormalizeCode is the canonical form used for code comparison.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
