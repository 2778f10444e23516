package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"auth-gateway/internal/api"
	"auth-gateway/internal/auth"
	"auth-gateway/internal/conf"
	"auth-gateway/internal/data"
	"auth-gateway/internal/server"
	"auth-gateway/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var flagconf string

func init() {
	flag.StringVar(&flagconf, "conf", "", "optional config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// load config before anything binds a port
	cfg, err := conf.Load(flagconf)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := conf.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *conf.Config, logger *slog.Logger) error {
	addr, err := cfg.Server.Addr()
	if err != nil {
		return err
	}

	paths := api.ChiPaths
	// 两种路由各自搭配一种 cookie handler
	var cookies auth.CookieHandler = auth.NewScopedCookieHandler("/", cfg.Session.CookieDomain)
	if cfg.Server.Router == conf.RouterMux {
		paths = api.MuxPaths
		cookies = auth.NewHTTPCookieHandler()
	}
	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")

	sessionConfig := auth.SessionConfiguration{
		Rolling:            cfg.Session.IsRolling(),
		AbsoluteDuration:   cfg.Session.AbsoluteDuration,
		InactivityDuration: cfg.Session.InactivityDuration,
	}

	// 手动依赖注入
	// data 层
	var states auth.StateStore
	switch cfg.Session.Store {
	case conf.SessionStoreSQLite:
		repo, err := data.NewSQLiteSessionRepo(cfg.Session.DBPath)
		if err != nil {
			return fmt.Errorf("failed to init session repo: %w", err)
		}
		defer repo.Close()
		repo.StartCleanup(ctx, 10*time.Minute, logger)
		states, err = auth.NewStatefulStateStore(cfg.Session.Secret, cookies, repo, sessionConfig, secure)
		if err != nil {
			return err
		}
	default:
		states, err = auth.NewStatelessStateStore(cfg.Session.Secret, cookies, sessionConfig, secure)
		if err != nil {
			return err
		}
	}
	transactions, err := auth.NewCookieTransactionStore(cfg.Session.Secret, cookies, secure)
	if err != nil {
		return err
	}

	// auth 层
	redirectURL := cfg.Server.BaseURL + paths.Callback
	oidcClient, err := auth.NewOIDCClient(ctx, auth.ProviderConfig{
		Issuer:       cfg.Auth.IssuerURL(),
		Domain:       cfg.Auth.Domain,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       cfg.Auth.Scopes,
		Audience:     cfg.Auth.Audience,
		HTTPClient:   &http.Client{Timeout: 15 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("failed to init OIDC client: %w", err)
	}
	identity := auth.NewClient(oidcClient, transactions, states)
	logger.Info("OIDC client ready", "issuer", cfg.Auth.IssuerURL(), "redirect_url", redirectURL, "session_store", cfg.Session.Store)

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	// service 层
	authService := service.NewAuthService(identity, service.Options{
		BaseURL:        cfg.Server.BaseURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
		Metrics:        metrics,
	})

	// api 层
	deps := api.RouterDeps{
		Auth: api.NewAuthHandler(authService, cfg.Server.BaseURL, logger),
		Guard: auth.RequireSession(authService, auth.GuardConfig{
			LoginPath:      paths.Login,
			BaseURL:        cfg.Server.BaseURL,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger,
			OnRedirect:     metrics.GuardRedirect,
		}),
		Metrics:        api.NewHTTPMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	var router http.Handler
	if cfg.Server.Router == conf.RouterMux {
		router = api.NewRouter(deps)
	} else {
		router = api.NewChiRouter(deps)
	}

	logger.Info("auth gateway starting", "addr", addr, "router", cfg.Server.Router, "production", cfg.Server.IsProduction())
	return server.Run(ctx, addr, router, logger)
}
