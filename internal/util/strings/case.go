// Package strings holds the identifier case conversions used by naming conventions
package strings

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && boundaryBefore(runes, i) {
				result.WriteRune('_')
			}
			result.WriteRune(unicode.ToLower(r))
		} else if r == '.' || r == '-' || r == ' ' {
			result.WriteRune('_')
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// ToLowerCamel lowercases the leading word of an identifier (LastName -> lastName, URLPath -> urlPath)
func ToLowerCamel(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			break
		}
		// keep the last capital of an acronym when a lowercase letter follows it
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(r)
	}
	return string(runes)
}

// ToUpperCamel capitalizes the first rune (lastName -> LastName)
func ToUpperCamel(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ToNaturalName converts an identifier to words for display (lastName -> Last Name, HTTPPort -> HTTP Port)
func ToNaturalName(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if r == '_' || r == '-' {
			result.WriteRune(' ')
			continue
		}
		if unicode.IsUpper(r) && i > 0 && boundaryBefore(runes, i) {
			result.WriteRune(' ')
		}
		if i == 0 || (i > 0 && (runes[i-1] == '_' || runes[i-1] == '-')) {
			r = unicode.ToUpper(r)
		}
		result.WriteRune(r)
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

func boundaryBefore(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
