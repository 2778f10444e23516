package service

import (
	"context"
	"log/slog"
	"net/url"

	"auth-gateway/internal/api"
	"auth-gateway/internal/auth"
)

// IdentityClient is the part of *auth.Client the gateway drives.
type IdentityClient interface {
	StartInteractiveLogin(ctx context.Context, opts auth.StartLoginOptions, store *auth.StoreOptions) (*url.URL, error)
	CompleteInteractiveLogin(ctx context.Context, callbackURL *url.URL, store *auth.StoreOptions) (*auth.CompleteLoginResult, error)
	GetSession(ctx context.Context, store *auth.StoreOptions) (*auth.StateData, error)
	Logout(ctx context.Context, opts auth.LogoutOptions, store *auth.StoreOptions) (*url.URL, error)
}

// Options configures the auth service.
type Options struct {
	// BaseURL is the fallback return target.
	BaseURL        string
	AllowedOrigins []string
	Logger         *slog.Logger
	Metrics        *Metrics
}

// appState travels through the provider round trip untouched.
type appState struct {
	ReturnTo string `json:"returnTo,omitempty"`
}

// authService 实现 api.AuthService
type authService struct {
	identity IdentityClient
	opts     Options
	logger   *slog.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(identity IdentityClient, opts Options) api.AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{identity: identity, opts: opts, logger: logger}
}

func (s *authService) resolve(requested string) string {
	return auth.ResolveReturnTo(requested, s.opts.AllowedOrigins, s.opts.BaseURL)
}

func (s *authService) Login(ctx context.Context, requestedReturnTo string, store *auth.StoreOptions) (string, error) {
	returnTo := s.resolve(requestedReturnTo)
	s.logger.Debug("login", "returnTo", returnTo)

	authURL, err := s.identity.StartInteractiveLogin(ctx, auth.StartLoginOptions{
		AppState: appState{ReturnTo: returnTo},
	}, store)
	s.opts.Metrics.observe("login", err)
	if err != nil {
		return "", err
	}
	return authURL.String(), nil
}

func (s *authService) Callback(ctx context.Context, callbackURL *url.URL, store *auth.StoreOptions) (string, error) {
	result, err := s.identity.CompleteInteractiveLogin(ctx, callbackURL, store)
	s.opts.Metrics.observe("callback", err)
	if err != nil {
		return "", err
	}

	var state appState
	if err := result.DecodeAppState(&state); err != nil {
		s.logger.Warn("failed to decode app state", "error", err)
	}
	s.logger.Debug("callback", "appState", state, "sub", result.Session.Subject())

	if state.ReturnTo == "" {
		return s.opts.BaseURL, nil
	}
	return state.ReturnTo, nil
}

func (s *authService) Logout(ctx context.Context, requestedReturnTo string, store *auth.StoreOptions) (string, error) {
	returnTo := s.resolve(requestedReturnTo)
	s.logger.Debug("logout", "returnTo", returnTo)

	logoutURL, err := s.identity.Logout(ctx, auth.LogoutOptions{ReturnTo: returnTo}, store)
	s.opts.Metrics.observe("logout", err)
	if err != nil {
		return "", err
	}
	return logoutURL.String(), nil
}

func (s *authService) GetSession(ctx context.Context, store *auth.StoreOptions) (*auth.StateData, error) {
	return s.identity.GetSession(ctx, store)
}
