package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeModel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase with punctuation",
			input:    "aq-75",
			expected: "AQ75",
		},
		{
			name:     "trailing HC dropped",
			input:    "aq-75HC",
			expected: "AQ75",
		},
		{
			name:     "only one HC suffix dropped",
			input:    "AQHCHC",
			expected: "AQHC",
		},
		{
			name:     "spaces and slashes stripped",
			input:    " mx 14/2 ",
			expected: "MX142",
		},
		{
			name:     "already canonical",
			input:    "BX10",
			expected: "BX10",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeModel(tt.input))
		})
	}
}

func TestNormalizeModelStable(t *testing.T) {
	// A canonical token that does not end in HC survives re-normalization.
	assert.Equal(t, "AQ75", NormalizeModel(NormalizeModel("aq-75hc")))
}
