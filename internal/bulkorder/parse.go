package bulkorder

import (
	"strings"
)

// TextToEntries parses pasted text into rows, one per non-blank line.
// Lines that yield a single token keep it as the code with an empty quantity.
func TextToEntries(text string) []OrderEntry {
	var entries []OrderEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		code, qty, _ := splitLine(line)
		entries = append(entries, OrderEntry{ItemCode: code, Quantity: qty})
	}
	return entries
}

// EntriesToText renders rows as "code,qty" lines, skipping blank rows.
func EntriesToText(entries []OrderEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsBlank() {
			continue
		}
		lines = append(lines, e.Code()+","+strings.TrimSpace(e.Quantity))
	}
	return strings.Join(lines, "\n")
}

// splitLine tries comma/tab separators first, then whitespace where the last
// token is the quantity and the rest form the code. ok is false when the
// line does not yield two tokens.
func splitLine(line string) (code, qty string, ok bool) {
	parts := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == '\t' })
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	if len(tokens) >= 2 {
		return tokens[0], tokens[1], true
	}

	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return "", "", false
	case 1:
		return fields[0], "", false
	}
	last := len(fields) - 1
	return strings.Join(fields[:last], " "), fields[last], true
}
