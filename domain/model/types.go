// Package model provides domain model for tabql
package model

import (
	"strconv"
	"strings"
)

// syntheticColumnPrefix prefixes generated column names for header-less sources.
const syntheticColumnPrefix = "c"

// Header is the ordered set of column names derived from a source.
type Header []string

// NewHeader create new Header.
func NewHeader(h []string) Header {
	return Header(h)
}

// NormalizeHeader builds a Header from raw first-row cells. Each name is
// trimmed of surrounding whitespace and lower-cased.
func NormalizeHeader(cells []string) Header {
	h := make(Header, len(cells))
	for i, c := range cells {
		h[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return h
}

// SyntheticHeader returns the names c0..c{n-1}.
func SyntheticHeader(n int) Header {
	h := make(Header, n)
	for i := range n {
		h[i] = syntheticColumnPrefix + strconv.Itoa(i)
	}
	return h
}

// String returns the comma-joined column names.
func (h Header) String() string {
	return strings.Join(h, ",")
}

// Duplicate returns the first name that appears more than once, if any.
func (h Header) Duplicate() (string, bool) {
	seen := make(map[string]struct{}, len(h))
	for _, name := range h {
		if _, ok := seen[name]; ok {
			return name, true
		}
		seen[name] = struct{}{}
	}
	return "", false
}

// Record is one row of text cells.
type Record []string

// PadTo right-pads the record with empty cells until it has n cells.
// Records that already have n or more cells are returned unmodified.
func (r Record) PadTo(n int) Record {
	if len(r) >= n {
		return r
	}
	padded := make(Record, n)
	copy(padded, r)
	return padded
}

// Values converts the record to driver arguments.
func (r Record) Values() []any {
	values := make([]any, len(r))
	for i, v := range r {
		values[i] = v
	}
	return values
}
