package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	platformdb "github.com/odyssey-erp/b2b-portal/internal/platform/db"
)

// Querier is the read side of a pgx connection or transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource loads products and their variants from PostgreSQL. Both
// queries run in one read-only repeatable-read transaction.
type PostgresSource struct {
	db platformdb.Beginner
}

// NewPostgresSource constructs PostgresSource.
func NewPostgresSource(db platformdb.Beginner) *PostgresSource {
	return &PostgresSource{db: db}
}

const listProductsSQL = `SELECT id, name, brand, description, category, sku, upc, price, original_price,
	availability_status, material, min_order_qty, case_pack, badges, tags, variant_attributes
FROM catalog_products
WHERE is_active
ORDER BY position, id`

const listVariantsSQL = `SELECT product_id, id, sku, upc, attributes, price, stock_qty, availability_status
FROM catalog_variants
WHERE is_active
ORDER BY product_id, position, id`

// Load implements Source.
func (s *PostgresSource) Load(ctx context.Context) ([]Product, error) {
	var products []Product
	err := platformdb.WithTx(ctx, s.db, platformdb.ReadSnapshot, func(tx pgx.Tx) error {
		var err error
		products, err = loadProducts(ctx, tx)
		if err != nil || len(products) == 0 {
			return err
		}
		index := make(map[string]int, len(products))
		for i, p := range products {
			index[p.ID] = i
		}
		return attachVariants(ctx, tx, products, index)
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func loadProducts(ctx context.Context, db Querier) ([]Product, error) {
	rows, err := db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("catalog: query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var (
			p                        Product
			status                   string
			badges, tags, attributes []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Description, &p.Category, &p.SKU, &p.UPC,
			&p.Price, &p.OriginalPrice, &status, &p.Material, &p.MinOrderQty, &p.CasePack,
			&badges, &tags, &attributes); err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		p.Availability = AvailabilityStatus(status)
		if err := decodeJSON(badges, &p.Badges); err != nil {
			return nil, fmt.Errorf("catalog: product %s badges: %w", p.ID, err)
		}
		if err := decodeJSON(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("catalog: product %s tags: %w", p.ID, err)
		}
		if err := decodeJSON(attributes, &p.VariantAttributes); err != nil {
			return nil, fmt.Errorf("catalog: product %s variant attributes: %w", p.ID, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate products: %w", err)
	}
	return products, nil
}

func attachVariants(ctx context.Context, db Querier, products []Product, index map[string]int) error {
	rows, err := db.Query(ctx, listVariantsSQL)
	if err != nil {
		return fmt.Errorf("catalog: query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID, status string
			v                 Variant
			attributes        []byte
		)
		if err := rows.Scan(&productID, &v.ID, &v.SKU, &v.UPC, &attributes, &v.Price, &v.StockQty, &status); err != nil {
			return fmt.Errorf("catalog: scan variant: %w", err)
		}
		v.Availability = AvailabilityStatus(status)
		if err := decodeJSON(attributes, &v.Attributes); err != nil {
			return fmt.Errorf("catalog: variant %s attributes: %w", v.ID, err)
		}
		i, ok := index[productID]
		if !ok {
			// Variant of an inactive product.
			continue
		}
		products[i].Variants = append(products[i].Variants, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("catalog: iterate variants: %w", err)
	}
	return nil
}

func decodeJSON(raw []byte, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
