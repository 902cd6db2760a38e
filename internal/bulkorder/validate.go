package bulkorder

import (
	"errors"
	"fmt"
	"strings"
)

// Validation is the outcome of row validation.
type Validation struct {
	Errors     []EntryError `json:"errors"`
	ValidCount int          `json:"validCount"`
}

// HasErrors reports whether any row produced a finding.
func (v Validation) HasErrors() bool {
	return len(v.Errors) > 0
}

// ValidateEntries checks every non-blank row and reports all findings.
func ValidateEntries(entries []OrderEntry) Validation {
	out := Validation{Errors: []EntryError{}}
	for i, e := range entries {
		if e.IsBlank() {
			continue
		}
		before := len(out.Errors)
		if e.Code() == "" {
			out.Errors = append(out.Errors, EntryError{Row: i, Field: FieldItemCode, Message: MsgCodeRequired})
		}
		if q := e.Qty(); !q.Valid() {
			msg := MsgQuantityPositive
			if errors.Is(q.Err, ErrQuantityRequired) {
				msg = MsgQuantityRequired
			}
			out.Errors = append(out.Errors, EntryError{Row: i, Field: FieldQuantity, Message: msg})
		}
		if len(out.Errors) == before {
			out.ValidCount++
		}
	}
	return out
}

// ValidatePasteText stops at the first malformed line. Line numbers count
// blank lines so they match what the user sees.
func ValidatePasteText(text string) *LineError {
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		code, qty, ok := splitLine(line)
		if !ok {
			return &LineError{Line: i + 1, Message: fmt.Sprintf("Line %d: expected \"code, quantity\"", i+1)}
		}
		if !ParseQuantity(qty).Valid() {
			return &LineError{Line: i + 1, Message: fmt.Sprintf("Line %d: invalid quantity %q for %s", i+1, qty, code)}
		}
	}
	return nil
}
