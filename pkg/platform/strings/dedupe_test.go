package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "sequence names kept in order", input: []string{"Order", "Customer"}, expected: []string{"Order", "Customer"}},
		{name: "repeats dropped", input: []string{"Order", " Order ", "Customer", "Order"}, expected: []string{"Order", "Customer"}},
		{name: "blanks dropped", input: []string{"", "  ", "Invoice"}, expected: []string{"Invoice"}},
		{name: "only blanks", input: []string{" ", ""}, expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
