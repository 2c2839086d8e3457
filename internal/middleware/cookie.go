package middleware

import (
	"strings"

	"github.com/jay-neo/cinebase/internal/session"
)

// RefreshTokenFromCookies scans raw Cookie header values for the refresh
// token. Entries without '=' are skipped and the last match wins. Empty
// and "null" values count as absent.
func RefreshTokenFromCookies(headers []string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, header := range headers {
		for _, entry := range strings.Split(header, ";") {
			name, v, ok := strings.Cut(strings.TrimSpace(entry), "=")
			if !ok || strings.TrimSpace(name) != session.CookieName {
				continue
			}
			value, found = strings.TrimSpace(v), true
		}
	}
	if !found || value == "" || value == "null" {
		return "", false
	}
	return value, true
}
