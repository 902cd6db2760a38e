package bulkorder

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Field names the part of a row a finding is attached to.
type Field string

const (
	FieldItemCode Field = "itemCode"
	FieldQuantity Field = "quantity"
)

// User-facing validation messages.
const (
	MsgCodeRequired     = "Item code is required"
	MsgQuantityRequired = "Quantity is required"
	MsgQuantityPositive = "Must be > 0"
)

var (
	// ErrQuantityRequired marks a blank quantity.
	ErrQuantityRequired = errors.New("bulkorder: quantity required")
	// ErrQuantityInvalid marks a quantity that is not a positive finite number.
	ErrQuantityInvalid = errors.New("bulkorder: quantity must be a positive number")
)

// OrderEntry is one editor row. Both fields stay raw so partial input
// survives re-renders.
type OrderEntry struct {
	ItemCode string `json:"itemCode"`
	Quantity string `json:"quantity"`
}

// IsBlank reports whether both fields are empty after trimming.
func (e OrderEntry) IsBlank() bool {
	return strings.TrimSpace(e.ItemCode) == "" && strings.TrimSpace(e.Quantity) == ""
}

// Code returns the trimmed item code.
func (e OrderEntry) Code() string {
	return strings.TrimSpace(e.ItemCode)
}

// Qty parses the raw quantity.
func (e OrderEntry) Qty() Quantity {
	return ParseQuantity(e.Quantity)
}

// Quantity pairs the raw input with its parse outcome. Exactly one of Value
// (when Err is nil) or Err is meaningful.
type Quantity struct {
	Raw   string
	Value float64
	Err   error
}

// ParseQuantity parses a positive, finite quantity.
func ParseQuantity(raw string) Quantity {
	q := Quantity{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		q.Err = ErrQuantityRequired
		return q
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		q.Err = ErrQuantityInvalid
		return q
	}
	q.Value = v
	return q
}

// Valid reports whether the quantity parsed.
func (q Quantity) Valid() bool {
	return q.Err == nil
}

// EntryError is a row-level finding. Row is the 0-based index in the editor.
type EntryError struct {
	Row     int    `json:"row"`
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

// LineError is the first malformed line of pasted text, 1-indexed.
type LineError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e *LineError) Error() string {
	return "line " + strconv.Itoa(e.Line) + ": " + e.Message
}
