package conf

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH0_DOMAIN", "tenant.example.com")
	t.Setenv("AUTH0_CLIENT_ID", "client-id")
	t.Setenv("AUTH0_CLIENT_SECRET", "client-secret")
	t.Setenv("BASE_URL", "http://localhost:3000/")
	t.Setenv("SESSION_SECRET", strings.Repeat("s", 32))
	t.Setenv("DEV_PORT", "3000")
	t.Setenv("PROD_PORT", "8080")
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tenant.example.com", cfg.Auth.Domain)
	assert.Equal(t, "http://localhost:3000", cfg.Server.BaseURL, "trailing slash trimmed")
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, RouterChi, cfg.Server.Router)
	assert.Equal(t, SessionStoreCookie, cfg.Session.Store)
	assert.Equal(t, 3*24*time.Hour, cfg.Session.AbsoluteDuration)
	assert.True(t, cfg.Session.IsRolling())
	assert.Contains(t, cfg.Auth.Scopes, "openid")
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH0_CLIENT_SECRET", "")
	t.Setenv("DEV_PORT", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH0_CLIENT_SECRET is required")
	assert.Contains(t, err.Error(), "DEV_PORT is required")
}

func TestLoadShortSessionSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SECRET", "too-short")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 chars")
}

func TestLoadRejectsUnknownRouter(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ROUTER", "echo")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROUTER")
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4040")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
server:
  router: mux
  allowed_origins:
    - https://ignored.example.com
session:
  store: sqlite
  rolling: false
  absolute_duration: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, RouterMux, cfg.Server.Router)
	assert.Equal(t, SessionStoreSQLite, cfg.Session.Store)
	assert.False(t, cfg.Session.IsRolling())
	assert.Equal(t, 2*time.Hour, cfg.Session.AbsoluteDuration)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:4040"}, cfg.Server.AllowedOrigins)
}

func TestLoadMissingFile(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestServerPort(t *testing.T) {
	s := Server{DevPort: "3000", ProdPort: "8080"}

	port, err := s.Port()
	require.NoError(t, err)
	assert.Equal(t, 3000, port)

	s.Env = "production"
	addr, err := s.Addr()
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)
}

func TestIssuerURL(t *testing.T) {
	tests := []struct {
		name string
		auth Auth
		want string
	}{
		{"bare domain", Auth{Domain: "tenant.auth0.com"}, "https://tenant.auth0.com/"},
		{"domain with scheme", Auth{Domain: "http://127.0.0.1:9000/"}, "http://127.0.0.1:9000/"},
		{"explicit issuer", Auth{Domain: "tenant.auth0.com", Issuer: "https://id.example.com"}, "https://id.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.auth.IssuerURL())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestLoadWebDefaults(t *testing.T) {
	cfg, err := LoadWeb()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.AuthAPIURL)
	assert.Equal(t, ":4040", cfg.Addr())
}
