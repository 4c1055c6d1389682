package model

import (
	"slices"
	"testing"
)

func TestNewHeader(t *testing.T) {
	t.Parallel()

	t.Run("Create header from slice", func(t *testing.T) {
		t.Parallel()

		headerSlice := []string{"col1", "col2", "col3"}
		header := NewHeader(headerSlice)

		if len(header) != 3 {
			t.Errorf("expected length 3, got %d", len(header))
		}

		for i, expected := range headerSlice {
			if header[i] != expected {
				t.Errorf("expected %s at index %d, got %s", expected, i, header[i])
			}
		}
	})
}

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cells    []string
		expected Header
	}{
		{
			name:     "Trim and lower-case",
			cells:    []string{" Name ", "AGE", "\tCity"},
			expected: Header{"name", "age", "city"},
		},
		{
			name:     "Already normalized",
			cells:    []string{"a", "b"},
			expected: Header{"a", "b"},
		},
		{
			name:     "Blank cell stays blank",
			cells:    []string{"   "},
			expected: Header{""},
		},
		{
			name:     "Empty row",
			cells:    []string{},
			expected: Header{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeHeader(tt.cells)
			if !slices.Equal(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSyntheticHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		n        int
		expected Header
	}{
		{name: "Three columns", n: 3, expected: Header{"c0", "c1", "c2"}},
		{name: "One column", n: 1, expected: Header{"c0"}},
		{name: "Zero columns", n: 0, expected: Header{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := SyntheticHeader(tt.n)
			if !slices.Equal(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestHeader_StringAndDuplicate(t *testing.T) {
	t.Parallel()

	h := NewHeader([]string{"a", "b", "a"})
	if got := h.String(); got != "a,b,a" {
		t.Errorf("expected a,b,a, got %s", got)
	}

	name, ok := h.Duplicate()
	if !ok || name != "a" {
		t.Errorf("expected duplicate a, got %q (%v)", name, ok)
	}

	if _, ok := NewHeader([]string{"a", "b"}).Duplicate(); ok {
		t.Error("expected no duplicate")
	}
}

func TestRecord_PadTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		record   Record
		n        int
		expected Record
	}{
		{
			name:     "Short row is padded",
			record:   Record{"1"},
			n:        3,
			expected: Record{"1", "", ""},
		},
		{
			name:     "Exact row is unchanged",
			record:   Record{"1", "2"},
			n:        2,
			expected: Record{"1", "2"},
		},
		{
			name:     "Long row is not truncated",
			record:   Record{"1", "2", "3"},
			n:        2,
			expected: Record{"1", "2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.record.PadTo(tt.n)
			if !slices.Equal(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}

	t.Run("Padding does not alias the input", func(t *testing.T) {
		t.Parallel()

		r := Record{"x"}
		padded := r.PadTo(2)
		padded[0] = "y"
		if r[0] != "x" {
			t.Errorf("input record was modified: %v", r)
		}
	})
}

func TestRecord_Values(t *testing.T) {
	t.Parallel()

	values := Record{"a", ""}.Values()
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(values))
	}
	if values[0] != "a" || values[1] != "" {
		t.Errorf("unexpected values %v", values)
	}
}
