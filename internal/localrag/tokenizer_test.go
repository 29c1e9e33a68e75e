package localrag

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "lowercases and strips punctuation",
			input:    "Hello, World! (Again)",
			expected: []string{"hello", "world", "again"},
		},
		{
			name:     "drops stop words",
			input:    "the quick fox and the lazy dog",
			expected: []string{"quick", "fox", "lazy", "dog"},
		},
		{
			name:     "drops tokens of length two or less",
			input:    "go is ok but golang works",
			expected: []string{"golang", "works"},
		},
		{
			name:     "keeps digits",
			input:    "ships within 30 days, costs 100 dollars",
			expected: []string{"ships", "within", "days", "costs", "100", "dollars"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
		{
			name:     "only punctuation",
			input:    "?! ... --",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	input := "Resilient clients degrade gracefully under network partitions."
	first := Tokenize(input)
	second := Tokenize(input)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("tokenization not deterministic: %v vs %v", first, second)
	}
}
