// Package library contains helper functions
package library

import "strings"

// StripBearerPrefix removes any leading Bearer scheme markers from an
// authorization value and returns the bare token. Repeated prefixes are
// stripped so double-wrapped headers still resolve.
func StripBearerPrefix(value string) string {
	token := strings.TrimSpace(value)
	for {
		if len(token) < 6 || !strings.EqualFold(token[:6], "bearer") {
			return token
		}
		rest := token[6:]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			return token
		}
		token = strings.TrimSpace(rest)
	}
}
