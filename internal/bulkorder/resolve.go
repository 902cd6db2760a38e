package bulkorder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/lookup"
)

// Finder resolves exact codes. *lookup.Index satisfies it.
type Finder interface {
	FindByCode(code string) (lookup.Match, bool)
}

// Cart receives a resolved batch in one call.
type Cart interface {
	AddItems(ctx context.Context, items []LineItem) error
}

// Aggregated is a code with the summed quantity of every row that named it.
type Aggregated struct {
	Code     string
	Quantity float64
}

// LineItem is a resolved, aggregated order line.
type LineItem struct {
	Code      string  `json:"code"`
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId,omitempty"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Resolution splits aggregated codes into resolved items and unknown codes.
type Resolution struct {
	ItemsToAdd    []LineItem `json:"itemsToAdd"`
	NotFoundCodes []string   `json:"notFoundCodes"`
}

// Aggregate sums quantities of valid rows per normalized code. Output keeps
// first-seen order and the first-seen spelling of each code.
func Aggregate(entries []OrderEntry) []Aggregated {
	var out []Aggregated
	pos := make(map[string]int)
	for _, e := range entries {
		code := e.Code()
		q := e.Qty()
		if code == "" || !q.Valid() {
			continue
		}
		key := catalog.NormalizeCode(code)
		if i, ok := pos[key]; ok {
			out[i].Quantity += q.Value
			continue
		}
		pos[key] = len(out)
		out = append(out, Aggregated{Code: code, Quantity: q.Value})
	}
	return out
}

// Resolve looks up each aggregated code. A nil finder resolves nothing.
func Resolve(aggregated []Aggregated, finder Finder) Resolution {
	res := Resolution{ItemsToAdd: []LineItem{}, NotFoundCodes: []string{}}
	for _, a := range aggregated {
		var (
			m  lookup.Match
			ok bool
		)
		if finder != nil {
			m, ok = finder.FindByCode(a.Code)
		}
		if !ok {
			res.NotFoundCodes = append(res.NotFoundCodes, a.Code)
			continue
		}
		res.ItemsToAdd = append(res.ItemsToAdd, lineItem(a, m))
	}
	return res
}

func lineItem(a Aggregated, m lookup.Match) LineItem {
	item := LineItem{
		Code:      a.Code,
		ProductID: m.Product.ID,
		SKU:       m.Product.SKU,
		Name:      m.Product.Name,
		Quantity:  a.Quantity,
		UnitPrice: m.Product.Price,
	}
	if v := m.Variant; v != nil {
		item.VariantID = v.ID
		if v.SKU != "" {
			item.SKU = v.SKU
		}
		if v.Price > 0 {
			item.UnitPrice = v.Price
		}
	}
	return item
}

// Outcome reports a submission attempt.
type Outcome struct {
	BatchID     string     `json:"batchId"`
	Validation  Validation `json:"validation"`
	Resolution  Resolution `json:"resolution"`
	Submitted   bool       `json:"submitted"`
	ClearInputs bool       `json:"clearInputs"`
}

// Submit validates entries, resolves them and adds every resolved item to
// the cart in one batch. Rows with findings block the submission. Inputs
// should be cleared only when something resolved and nothing failed.
func Submit(ctx context.Context, entries []OrderEntry, finder Finder, cart Cart) (Outcome, error) {
	out := Outcome{
		BatchID:    uuid.NewString(),
		Validation: ValidateEntries(entries),
		Resolution: Resolution{ItemsToAdd: []LineItem{}, NotFoundCodes: []string{}},
	}
	if out.Validation.HasErrors() || out.Validation.ValidCount == 0 {
		return out, nil
	}

	out.Resolution = Resolve(Aggregate(entries), finder)
	if len(out.Resolution.ItemsToAdd) > 0 {
		if cart == nil {
			return out, fmt.Errorf("bulkorder: submit %s: cart required", out.BatchID)
		}
		if err := cart.AddItems(ctx, out.Resolution.ItemsToAdd); err != nil {
			return out, fmt.Errorf("bulkorder: submit %s: %w", out.BatchID, err)
		}
		out.Submitted = true
	}
	out.ClearInputs = out.Submitted && len(out.Resolution.NotFoundCodes) == 0
	return out, nil
}
