package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"testing"
)

// NewBrowser returns an http.Client with a cookie jar that never follows redirects,
// so tests can inspect each 302 of a login round trip.
func NewBrowser(t testing.TB) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
