package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
)

// SessionGetter looks up the current session.
type SessionGetter interface {
	GetSession(ctx context.Context, store *StoreOptions) (*StateData, error)
}

// Decision is the outcome of Guard.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "redirect_to_login"
}

// GuardConfig configures RequireSession.
type GuardConfig struct {
	// LoginPath is where anonymous callers are sent, e.g. /login or /auth/login.
	LoginPath string
	// BaseURL is prefixed to the request URI to form the desired return target. It is also the fallback.
	BaseURL        string
	AllowedOrigins []string
	Logger         *slog.Logger
	// OnRedirect, if set, is called each time a caller is redirected to login.
	OnRedirect func()
}

// Guard decides whether the request may proceed. Lookup errors count as no session.
func Guard(ctx context.Context, getter SessionGetter, store *StoreOptions) (Decision, *StateData, error) {
	session, err := getter.GetSession(ctx, store)
	if err != nil {
		return RedirectToLogin, nil, err
	}
	if session == nil {
		return RedirectToLogin, nil, nil
	}
	return Allow, session, nil
}

// LoginRedirectURL returns LoginPath with the resolved return target for r attached.
func (cfg GuardConfig) LoginRedirectURL(r *http.Request) string {
	desired := cfg.BaseURL + r.URL.RequestURI()
	returnTo := ResolveReturnTo(desired, cfg.AllowedOrigins, cfg.BaseURL)
	return cfg.LoginPath + "?" + url.Values{ReturnToParam: {returnTo}}.Encode()
}

// RequireSession only lets requests with an active session reach next.
// Anonymous callers get a 302 to the login path; next is never invoked for them.
func RequireSession(getter SessionGetter, cfg GuardConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, session, err := Guard(r.Context(), getter, NewStoreOptions(w, r))
			if err != nil {
				logger.Warn("session lookup failed", "path", r.URL.Path, "error", err)
			}
			if decision != Allow {
				if cfg.OnRedirect != nil {
					cfg.OnRedirect()
				}
				http.Redirect(w, r, cfg.LoginRedirectURL(r), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
