package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"auth-gateway/internal/client"
	"auth-gateway/internal/conf"
	"auth-gateway/internal/server"
	"auth-gateway/internal/web"
)

func main() {
	cfg, err := conf.LoadWeb()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := conf.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := web.NewHandler(client.New(cfg.AuthAPIURL), web.Config{
		AuthAPIURL: cfg.AuthAPIURL,
		AppBaseURL: cfg.AppBaseURL,
	}, logger)

	logger.Info("web app starting", "addr", cfg.Addr(), "auth_api", cfg.AuthAPIURL)
	if err := server.Run(ctx, cfg.Addr(), handler, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
