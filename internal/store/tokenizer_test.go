package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple words",
			input:    "hello world",
			expected: []string{"hello", "world"},
		},
		{
			name:     "mixed case lowered",
			input:    "Hello WORLD Foo",
			expected: []string{"hello", "world", "foo"},
		},
		{
			name:     "collapses whitespace runs",
			input:    "  alpha\t\tbravo \n charlie  ",
			expected: []string{"alpha", "bravo", "charlie"},
		},
		{
			name:     "punctuation stays attached",
			input:    "don't stop, now.",
			expected: []string{"don't", "stop,", "now."},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
		{
			name:     "whitespace only",
			input:    " \t\n ",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			assert.Equal(t, tt.expected, tokens)
		})
	}
}
