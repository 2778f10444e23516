package conf

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// WebConfig is the server-rendered web app config.
type WebConfig struct {
	AuthAPIURL string `env:"AUTH_API_URL" envDefault:"http://localhost:3000"`
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:4040"`
	Port       int    `env:"WEB_PORT" envDefault:"4040"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadWeb loads the web app config from environment variables.
func LoadWeb() (*WebConfig, error) {
	var cfg WebConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.AuthAPIURL = strings.TrimSuffix(cfg.AuthAPIURL, "/")
	cfg.AppBaseURL = strings.TrimSuffix(cfg.AppBaseURL, "/")
	return &cfg, nil
}

// Addr returns the listen address.
func (c *WebConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
