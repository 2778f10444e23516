package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"auth-gateway/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	session *auth.StateData
	err     error
}

func (f fakeGetter) GetSession(context.Context, *auth.StoreOptions) (*auth.StateData, error) {
	return f.session, f.err
}

func guardConfig() auth.GuardConfig {
	return auth.GuardConfig{
		LoginPath:      "/auth/login",
		BaseURL:        "http://localhost:3000",
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
	}
}

func TestRequireSessionRedirectsAnonymous(t *testing.T) {
	tests := []struct {
		name   string
		getter fakeGetter
	}{
		{"no session", fakeGetter{}},
		{"lookup error", fakeGetter{err: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			redirects := 0
			cfg := guardConfig()
			cfg.OnRedirect = func() { redirects++ }

			h := auth.RequireSession(tt.getter, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private?tab=1", nil))

			assert.False(t, called, "protected handler must not run")
			assert.Equal(t, 1, redirects)
			require.Equal(t, http.StatusFound, rec.Code)

			loc, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "/auth/login", loc.Path)
			assert.Equal(t, "http://localhost:3000/private?tab=1", loc.Query().Get(auth.ReturnToParam))
		})
	}
}

func TestRequireSessionAllowsAuthenticated(t *testing.T) {
	session := &auth.StateData{User: map[string]any{"sub": "auth0|abc"}}
	var seen *auth.StateData

	h := auth.RequireSession(fakeGetter{session: session}, guardConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.MustSessionFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Same(t, session, seen)
}

func TestLoginRedirectURLFallsBackToBaseURL(t *testing.T) {
	cfg := guardConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}

	got := cfg.LoginRedirectURL(httptest.NewRequest(http.MethodGet, "/private", nil))
	loc, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", loc.Query().Get(auth.ReturnToParam))
}

func TestGuardDecision(t *testing.T) {
	d, s, err := auth.Guard(context.Background(), fakeGetter{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, auth.RedirectToLogin, d)
	assert.Equal(t, "redirect_to_login", d.String())

	d, s, err = auth.Guard(context.Background(), fakeGetter{session: &auth.StateData{}}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, auth.Allow, d)
	assert.Equal(t, "allow", d.String())
}

func TestSessionFromContext(t *testing.T) {
	_, err := auth.SessionFromContext(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoSessionInContext)

	assert.Panics(t, func() { auth.MustSessionFromContext(context.Background()) })

	s := &auth.StateData{}
	got, err := auth.SessionFromContext(auth.WithSession(context.Background(), s))
	require.NoError(t, err)
	assert.Same(t, s, got)
}
