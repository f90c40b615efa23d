// Package utils holds small shared helpers
package utils

import (
	"strings"
	"unicode"
)

// MaxLogStringLength caps server- or admin-provided strings in log lines
const MaxLogStringLength = 120

// SanitizeLogString makes an externally supplied string safe to log: it
// truncates overlong values, collapses control characters to spaces and
// escapes format specifiers. Room names, meeting titles and pairing
// codes all pass through the backend or an admin before reaching our
// log lines.
func SanitizeLogString(input string) string {
	if input == "" {
		return ""
	}

	if len(input) > MaxLogStringLength {
		input = input[:MaxLogStringLength] + "... (truncated)"
	}

	input = strings.ReplaceAll(input, "\r\n", "\n")

	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, input)

	return strings.ReplaceAll(sanitized, "%", "%%")
}
