package api

import (
	"context"
	"net/url"

	"auth-gateway/internal/auth"
)

// SessionResponse /session 响应
type SessionResponse struct {
	IsAuthenticated bool           `json:"isAuthenticated"`
	User            map[string]any `json:"user"`
}

// ProfileResponse /profile 响应
type ProfileResponse struct {
	User map[string]any `json:"user"`
}

// LoginStatusResponse is returned by the demo endpoints /, /public and /private.
type LoginStatusResponse struct {
	IsLoggedIn bool           `json:"isLoggedIn"`
	User       map[string]any `json:"user"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AuthService 认证服务接口（由 service 层实现）
type AuthService interface {
	// Login returns the provider authorization URL for a login that ends at requestedReturnTo.
	Login(ctx context.Context, requestedReturnTo string, store *auth.StoreOptions) (string, error)
	// Callback completes the login and returns where the browser should land.
	Callback(ctx context.Context, callbackURL *url.URL, store *auth.StoreOptions) (string, error)
	// Logout clears the session and returns the provider logout URL.
	Logout(ctx context.Context, requestedReturnTo string, store *auth.StoreOptions) (string, error)
	// GetSession returns nil, nil for an anonymous caller.
	GetSession(ctx context.Context, store *auth.StoreOptions) (*auth.StateData, error)
}
