package conf

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// MinSessionSecretLength is the shortest SESSION_SECRET accepted at startup.
	MinSessionSecretLength = 32

	RouterMux = "mux"
	RouterChi = "chi"

	SessionStoreCookie = "cookie"
	SessionStoreSQLite = "sqlite"
)

// Config is the gateway configuration. It is loaded once at startup and never mutated.
type Config struct {
	Server  Server  `yaml:"server"`
	Auth    Auth    `yaml:"auth"`
	Session Session `yaml:"session"`
	Log     Log     `yaml:"log"`
}

// Server is the HTTP listener config.
type Server struct {
	BaseURL  string `yaml:"base_url" env:"BASE_URL"`
	DevPort  string `yaml:"dev_port" env:"DEV_PORT"`
	ProdPort string `yaml:"prod_port" env:"PROD_PORT"`
	Env      string `yaml:"env" env:"NODE_ENV"`
	Router   string `yaml:"router" env:"ROUTER"`
	// AllowedOrigins gates returnTo targets and CORS, checked in order.
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Auth is the identity provider config.
type Auth struct {
	Domain       string   `yaml:"domain" env:"AUTH0_DOMAIN"`
	Issuer       string   `yaml:"issuer" env:"AUTH0_ISSUER"` // Optional: derived from domain if not set
	ClientID     string   `yaml:"client_id" env:"AUTH0_CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"AUTH0_CLIENT_SECRET"`
	Audience     string   `yaml:"audience" env:"AUTH0_AUDIENCE"`
	Scopes       []string `yaml:"scopes" env:"AUTH0_SCOPES" envSeparator:","`
}

// Session is the session cookie and store config.
type Session struct {
	Secret             string        `yaml:"secret" env:"SESSION_SECRET"`
	CookieDomain       string        `yaml:"cookie_domain" env:"COOKIE_DOMAIN"`
	Store              string        `yaml:"store" env:"SESSION_STORE"`
	DBPath             string        `yaml:"db_path" env:"SESSION_DB_PATH"`
	Rolling            *bool         `yaml:"rolling" env:"SESSION_ROLLING"`
	AbsoluteDuration   time.Duration `yaml:"absolute_duration" env:"SESSION_ABSOLUTE_DURATION"`
	InactivityDuration time.Duration `yaml:"inactivity_duration" env:"SESSION_INACTIVITY_DURATION"`
}

// Log is the logger config.
type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// IsProduction reports whether NODE_ENV selects the production port.
func (s *Server) IsProduction() bool {
	return s.Env == "production"
}

// Port returns the port that applies to the current environment.
func (s *Server) Port() (int, error) {
	raw := s.DevPort
	if s.IsProduction() {
		raw = s.ProdPort
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", raw, err)
	}
	return port, nil
}

// Addr returns the listen address for the current environment.
func (s *Server) Addr() (string, error) {
	port, err := s.Port()
	if err != nil {
		return "", err
	}
	return ":" + strconv.Itoa(port), nil
}

// IssuerURL returns the OIDC issuer.
// If Issuer is explicitly configured, use it
// Otherwise, construct it from the tenant domain
func (a *Auth) IssuerURL() string {
	if a.Issuer != "" {
		return a.Issuer
	}
	domain := strings.TrimSuffix(a.Domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain + "/"
	}
	return "https://" + domain + "/"
}

// IsRolling reports whether session expiry slides with activity. Defaults to true.
func (s *Session) IsRolling() bool {
	return s.Rolling == nil || *s.Rolling
}

// Load loads config from an optional YAML file, then applies environment variables on top.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	// an empty origin would match every returnTo
	origins := cfg.Server.AllowedOrigins[:0]
	for _, o := range cfg.Server.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.Server.AllowedOrigins = origins
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if cfg.Server.Router == "" {
		cfg.Server.Router = RouterChi
	}
	cfg.Server.BaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/")
	if len(cfg.Auth.Scopes) == 0 {
		cfg.Auth.Scopes = []string{"openid", "profile", "email", "offline_access"}
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = SessionStoreCookie
	}
	if cfg.Session.DBPath == "" {
		cfg.Session.DBPath = "data/sessions.db"
	}
	if cfg.Session.AbsoluteDuration == 0 {
		cfg.Session.AbsoluteDuration = 3 * 24 * time.Hour
	}
	if cfg.Session.InactivityDuration == 0 {
		cfg.Session.InactivityDuration = 24 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate checks that everything the gateway needs before binding a port is present.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{"AUTH0_DOMAIN", c.Auth.Domain},
		{"AUTH0_CLIENT_ID", c.Auth.ClientID},
		{"AUTH0_CLIENT_SECRET", c.Auth.ClientSecret},
		{"BASE_URL", c.Server.BaseURL},
		{"SESSION_SECRET", c.Session.Secret},
		{"DEV_PORT", c.Server.DevPort},
		{"PROD_PORT", c.Server.ProdPort},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}

	if c.Session.Secret != "" && len(c.Session.Secret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET should be at least %d chars", MinSessionSecretLength))
	}

	if c.Server.BaseURL != "" {
		if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("BASE_URL must be an absolute URL, got %q", c.Server.BaseURL))
		}
	}

	for _, p := range []struct {
		name  string
		value string
	}{{"DEV_PORT", c.Server.DevPort}, {"PROD_PORT", c.Server.ProdPort}} {
		if p.value == "" {
			continue
		}
		if n, err := strconv.Atoi(p.value); err != nil || n <= 0 || n > 65535 {
			errs = append(errs, fmt.Errorf("%s must be a port number, got %q", p.name, p.value))
		}
	}

	switch c.Server.Router {
	case RouterMux, RouterChi:
	default:
		errs = append(errs, fmt.Errorf("ROUTER must be %q or %q, got %q", RouterMux, RouterChi, c.Server.Router))
	}

	switch c.Session.Store {
	case SessionStoreCookie, SessionStoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreCookie, SessionStoreSQLite, c.Session.Store))
	}

	return errors.Join(errs...)
}
