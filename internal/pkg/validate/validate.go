// Package validate holds the small field checks shared by the HTTP handlers.
package validate

import "strings"

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Trimmed returns the value with surrounding whitespace removed and whether
// anything is left.
func Trimmed(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	return trimmed, trimmed != ""
}
