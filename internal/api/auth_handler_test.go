package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"auth-gateway/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	session     *auth.StateData
	sessionErr  error
	flowErr     error
	lastReturn  string
	callbackURL *url.URL
}

func (f *fakeService) Login(_ context.Context, returnTo string, _ *auth.StoreOptions) (string, error) {
	f.lastReturn = returnTo
	return "https://idp.example.com/authorize", f.flowErr
}

func (f *fakeService) Callback(_ context.Context, u *url.URL, _ *auth.StoreOptions) (string, error) {
	f.callbackURL = u
	return "http://localhost:5173/dashboard", f.flowErr
}

func (f *fakeService) Logout(_ context.Context, returnTo string, _ *auth.StoreOptions) (string, error) {
	f.lastReturn = returnTo
	return "https://idp.example.com/v2/logout", f.flowErr
}

func (f *fakeService) GetSession(context.Context, *auth.StoreOptions) (*auth.StateData, error) {
	return f.session, f.sessionErr
}

func newTestRouters(svc AuthService) map[string]http.Handler {
	deps := RouterDeps{
		Auth: NewAuthHandler(svc, "http://localhost:3000", nil),
		Guard: auth.RequireSession(svc, auth.GuardConfig{
			LoginPath:      "/auth/login",
			BaseURL:        "http://localhost:3000",
			AllowedOrigins: []string{"http://localhost:3000"},
		}),
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	return map[string]http.Handler{
		"mux": NewRouter(deps),
		"chi": NewChiRouter(deps),
	}
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestFlowEndpointsOnBothPathForms(t *testing.T) {
	for name, router := range newTestRouters(&fakeService{}) {
		t.Run(name, func(t *testing.T) {
			for _, path := range []string{"/login", "/auth/login"} {
				rec := serve(router, http.MethodGet, path+"?returnTo=http://localhost:5173/x")
				assert.Equal(t, http.StatusFound, rec.Code, path)
				assert.Equal(t, "https://idp.example.com/authorize", rec.Header().Get("Location"))
			}
			for _, path := range []string{"/callback", "/auth/callback"} {
				rec := serve(router, http.MethodGet, path+"?code=c&state=s")
				assert.Equal(t, http.StatusFound, rec.Code, path)
				assert.Equal(t, "http://localhost:5173/dashboard", rec.Header().Get("Location"))
			}
			for _, path := range []string{"/logout", "/auth/logout"} {
				rec := serve(router, http.MethodGet, path)
				assert.Equal(t, http.StatusFound, rec.Code, path)
				assert.Equal(t, "https://idp.example.com/v2/logout", rec.Header().Get("Location"))
			}
		})
	}
}

func TestLoginPassesRequestedReturnTo(t *testing.T) {
	svc := &fakeService{}
	router := NewChiRouter(RouterDeps{Auth: NewAuthHandler(svc, "http://localhost:3000", nil)})

	serve(router, http.MethodGet, "/auth/login?returnTo="+url.QueryEscape("http://localhost:5173/dashboard"))
	assert.Equal(t, "http://localhost:5173/dashboard", svc.lastReturn)
}

func TestCallbackReconstructsFullURL(t *testing.T) {
	svc := &fakeService{}
	router := NewRouter(RouterDeps{Auth: NewAuthHandler(svc, "http://localhost:3000", nil)})

	serve(router, http.MethodGet, "/callback?code=abc&state=xyz")
	require.NotNil(t, svc.callbackURL)
	assert.Equal(t, "http://localhost:3000/callback?code=abc&state=xyz", svc.callbackURL.String())
}

func TestSessionEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		svc     *fakeService
		authed  bool
		hasUser bool
	}{
		{"anonymous", &fakeService{}, false, false},
		{"lookup error", &fakeService{sessionErr: errors.New("db down")}, false, false},
		{"authenticated", &fakeService{session: &auth.StateData{User: map[string]any{"sub": "auth0|abc"}}}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestRouters(tt.svc)["chi"], http.MethodGet, "/session")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.authed, body["isAuthenticated"])
			if tt.hasUser {
				assert.Equal(t, "auth0|abc", body["user"].(map[string]any)["sub"])
			} else {
				assert.Nil(t, body["user"])
				assert.Contains(t, body, "user")
			}
		})
	}
}

func TestProfileEndpoint(t *testing.T) {
	rec := serve(newTestRouters(&fakeService{})["mux"], http.MethodGet, "/profile")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthenticated"}`, rec.Body.String())

	svc := &fakeService{session: &auth.StateData{User: map[string]any{"sub": "auth0|abc"}}}
	rec = serve(newTestRouters(svc)["mux"], http.MethodGet, "/profile")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":{"sub":"auth0|abc"}}`, rec.Body.String())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing transaction", auth.ErrMissingTransaction, http.StatusBadRequest, "invalid_request"},
		{"state mismatch", auth.ErrStateMismatch, http.StatusBadRequest, "invalid_request"},
		{"upstream", &auth.UpstreamError{Op: "token exchange", Code: "server_error", Description: "secret detail"}, http.StatusBadGateway, "upstream_identity_error"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestRouters(&fakeService{flowErr: tt.err})["chi"], http.MethodGet, "/auth/callback?code=c&state=s")
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}

func TestDemoEndpoints(t *testing.T) {
	svc := &fakeService{}
	for name, router := range newTestRouters(svc) {
		t.Run(name, func(t *testing.T) {
			for _, path := range []string{"/", "/public"} {
				rec := serve(router, http.MethodGet, path)
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.JSONEq(t, `{"isLoggedIn":false,"user":null}`, rec.Body.String())
			}

			rec := serve(router, http.MethodGet, "/private")
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/auth/login?returnTo="+url.QueryEscape("http://localhost:3000/private"), rec.Header().Get("Location"))
		})
	}

	svc.session = &auth.StateData{User: map[string]any{"sub": "auth0|abc"}}
	rec := serve(newTestRouters(svc)["chi"], http.MethodGet, "/private")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isLoggedIn":true,"user":{"sub":"auth0|abc"}}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouters(&fakeService{})["mux"], http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Greater(t, body.Timestamp, int64(1_000_000_000_000), "millisecond timestamp")
}

func TestCORS(t *testing.T) {
	for name, router := range newTestRouters(&fakeService{}) {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/session", nil)
			req.Header.Set("Origin", "http://localhost:5173")
			req.Header.Set("Access-Control-Request-Method", "GET")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

			req = httptest.NewRequest(http.MethodGet, "/session", nil)
			req.Header.Set("Origin", "https://evil.example.com")
			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
