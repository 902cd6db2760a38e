package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidProduct wraps struct-level rule violations.
	ErrInvalidProduct = errors.New("catalog: invalid product")
	// ErrVariantAttributes indicates a variant whose attributes disagree with the declared dimensions.
	ErrVariantAttributes = errors.New("catalog: variant attributes mismatch")
	// ErrDuplicateCode indicates a code used by more than one product or variant.
	ErrDuplicateCode = errors.New("catalog: duplicate code")
	// ErrDuplicateProduct indicates a repeated product id.
	ErrDuplicateProduct = errors.New("catalog: duplicate product id")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every product and the catalog-wide code uniqueness rule.
// All violations are returned joined so a loader can report them together.
func Validate(products []Product) error {
	var errs []error
	ids := make(map[string]struct{}, len(products))
	owners := make(map[string]string)

	claim := func(code, owner string) {
		key := NormalizeCode(code)
		if key == "" {
			return
		}
		if prev, ok := owners[key]; ok && prev != owner {
			errs = append(errs, fmt.Errorf("%w: %s used by %s and %s", ErrDuplicateCode, key, prev, owner))
			return
		}
		owners[key] = owner
	}

	for _, p := range products {
		if err := validate.Struct(p); err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %v", ErrInvalidProduct, p.ID, err))
			continue
		}
		if _, dup := ids[p.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateProduct, p.ID))
			continue
		}
		ids[p.ID] = struct{}{}

		for _, code := range p.Codes() {
			claim(code, p.ID)
		}
		for _, v := range p.Variants {
			if err := checkVariantAttributes(p, v); err != nil {
				errs = append(errs, err)
			}
			for _, code := range v.Codes() {
				claim(code, p.ID+"/"+v.ID)
			}
		}
	}
	return errors.Join(errs...)
}

func checkVariantAttributes(p Product, v Variant) error {
	if len(v.Attributes) != len(p.VariantAttributes) {
		return fmt.Errorf("%w: %s/%s has %d attributes, product declares %d", ErrVariantAttributes, p.ID, v.ID, len(v.Attributes), len(p.VariantAttributes))
	}
	for _, attr := range p.VariantAttributes {
		val, ok := v.Attributes[attr.Name]
		if !ok {
			return fmt.Errorf("%w: %s/%s missing %s", ErrVariantAttributes, p.ID, v.ID, attr.Name)
		}
		if !slices.Contains(attr.Values, val) {
			return fmt.Errorf("%w: %s/%s %s=%q not declared", ErrVariantAttributes, p.ID, v.ID, attr.Name, val)
		}
	}
	return nil
}

// IsRejected reports whether err means the source data itself is unusable, as
// opposed to a transient I/O failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrEmptyCatalog) ||
		errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrVariantAttributes) ||
		errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrDuplicateProduct)
}
