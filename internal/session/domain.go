package session

import (
	"net/url"
	"strings"
)

// ParentDomain returns the cookie domain for rawURL: the last three host
// labels when there are more than two, otherwise the host itself. Hosts
// with a single label (localhost) and unparsable urls yield "".
//
//	example.com            -> example.com
//	api.example.com        -> api.example.com
//	auth.api.example.co.uk -> example.co.uk
func ParentDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(u.Hostname(), ".")
	if len(parts) < 2 {
		return ""
	}
	if n := len(parts); n > 2 {
		return strings.Join(parts[n-3:], ".")
	}
	return strings.Join(parts, ".")
}
