package auth

import (
	"strings"
)

// ReturnToParam is the query parameter carrying the caller's post-login/logout target.
const ReturnToParam = "returnTo"

// ResolveReturnTo returns requested when it contains one of allowedOrigins, else fallback.
//
// The match is a plain substring check in allow-list order, with no URL parsing.
// That is loose: with "http://localhost:5173" allowed, "http://localhost:5173.evil.com"
// and "https://evil.com/?x=http://localhost:5173" are both accepted. Tightening it to an
// exact scheme/host/port comparison changes which redirects existing clients may use.
func ResolveReturnTo(requested string, allowedOrigins []string, fallback string) string {
	if requested == "" {
		return fallback
	}
	for _, origin := range allowedOrigins {
		if strings.Contains(requested, origin) {
			return requested
		}
	}
	return fallback
}
