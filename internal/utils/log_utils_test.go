package utils

import (
	"strings"
	"testing"
)

func TestSanitizeLogString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "plain room name",
			input:    "Fishbowl 3.14",
			expected: "Fishbowl 3.14",
		},
		{
			name:     "format specifiers escaped",
			input:    "Sync %s failed %d times",
			expected: "Sync %%s failed %%d times",
		},
		{
			name:     "newlines collapsed",
			input:    "first\nsecond\r\nthird",
			expected: "first second third",
		},
		{
			name:     "control characters collapsed",
			input:    "code\tXK\x0042",
			expected: "code XK 42",
		},
		{
			name:     "overlong value truncated",
			input:    strings.Repeat("a", 300),
			expected: strings.Repeat("a", MaxLogStringLength) + "... (truncated)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeLogString(tc.input); got != tc.expected {
				t.Errorf("SanitizeLogString(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}
