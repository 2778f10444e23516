package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"auth-gateway/internal/api"
	"auth-gateway/internal/auth"
	"auth-gateway/internal/service"
	"auth-gateway/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateway struct {
	URL      string
	provider *testutil.OIDCProvider
	paths    api.Paths
}

// newGateway wires the real identity client, service and router against a fake provider.
func newGateway(t *testing.T, variant string) *gateway {
	t.Helper()

	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	provider := testutil.NewOIDCProvider(t)
	paths := api.ChiPaths
	var cookies auth.CookieHandler = auth.NewScopedCookieHandler("/", "")
	if variant == "mux" {
		paths = api.MuxPaths
		cookies = auth.NewHTTPCookieHandler()
	}

	secret := strings.Repeat("s", 32)
	oidcClient, err := auth.NewOIDCClient(context.Background(), auth.ProviderConfig{
		Issuer:       provider.Issuer(),
		ClientID:     testutil.TestClientID,
		ClientSecret: testutil.TestClientSecret,
		RedirectURL:  srv.URL + paths.Callback,
	})
	require.NoError(t, err)
	tx, err := auth.NewCookieTransactionStore(secret, cookies, false)
	require.NoError(t, err)
	states, err := auth.NewStatelessStateStore(secret, cookies, auth.DefaultSessionConfiguration(), false)
	require.NoError(t, err)

	allowed := []string{"http://localhost:5173", srv.URL}
	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)
	svc := service.NewAuthService(auth.NewClient(oidcClient, tx, states), service.Options{
		BaseURL:        srv.URL,
		AllowedOrigins: allowed,
		Metrics:        metrics,
	})

	deps := api.RouterDeps{
		Auth: api.NewAuthHandler(svc, srv.URL, nil),
		Guard: auth.RequireSession(svc, auth.GuardConfig{
			LoginPath:      paths.Login,
			BaseURL:        srv.URL,
			AllowedOrigins: allowed,
			OnRedirect:     metrics.GuardRedirect,
		}),
		Metrics:        api.NewHTTPMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigins: allowed,
	}
	if variant == "mux" {
		handler = api.NewRouter(deps)
	} else {
		handler = api.NewChiRouter(deps)
	}

	return &gateway{URL: srv.URL, provider: provider, paths: paths}
}

func get(t *testing.T, c *http.Client, target string) *http.Response {
	t.Helper()
	resp, err := c.Get(target)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// login walks login -> provider -> callback and returns the final redirect target.
func (g *gateway) login(t *testing.T, browser *http.Client, returnTo string) string {
	t.Helper()
	target := g.URL + g.paths.Login
	if returnTo != "" {
		target += "?returnTo=" + url.QueryEscape(returnTo)
	}

	resp := get(t, browser, target)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	authURL := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(authURL, g.provider.Server.URL+"/authorize"), authURL)

	resp = get(t, browser, authURL)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	callback := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(callback, g.URL+g.paths.Callback), callback)

	resp = get(t, browser, callback)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	return resp.Header.Get("Location")
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestLoginReturnTargets(t *testing.T) {
	for _, variant := range []string{"mux", "chi"} {
		t.Run(variant, func(t *testing.T) {
			g := newGateway(t, variant)

			assert.Equal(t, g.URL, g.login(t, testutil.NewBrowser(t), ""), "no returnTo lands on base url")
			assert.Equal(t, "http://localhost:5173/dashboard", g.login(t, testutil.NewBrowser(t), "http://localhost:5173/dashboard"))
			assert.Equal(t, g.URL, g.login(t, testutil.NewBrowser(t), "https://evil.example.com"), "unlisted origin falls back")
		})
	}
}

func TestProfileBeforeAndAfterLogout(t *testing.T) {
	for _, variant := range []string{"mux", "chi"} {
		t.Run(variant, func(t *testing.T) {
			g := newGateway(t, variant)
			browser := testutil.NewBrowser(t)

			var session api.SessionResponse
			decode(t, get(t, browser, g.URL+"/session"), &session)
			assert.False(t, session.IsAuthenticated)
			assert.Nil(t, session.User)

			g.login(t, browser, "")

			resp := get(t, browser, g.URL+"/profile")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var profile api.ProfileResponse
			decode(t, resp, &profile)
			assert.Equal(t, "auth0|user-123", profile.User["sub"])

			decode(t, get(t, browser, g.URL+"/session"), &session)
			assert.True(t, session.IsAuthenticated)

			resp = get(t, browser, g.URL+g.paths.Logout+"?returnTo="+url.QueryEscape("http://localhost:5173"))
			require.Equal(t, http.StatusFound, resp.StatusCode)
			logoutURL, err := url.Parse(resp.Header.Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "/oidc/logout", logoutURL.Path)
			assert.Equal(t, "http://localhost:5173", logoutURL.Query().Get("post_logout_redirect_uri"))

			resp = get(t, browser, g.URL+"/profile")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestGuardedRouteRoundTrip(t *testing.T) {
	g := newGateway(t, "chi")
	browser := testutil.NewBrowser(t)

	resp := get(t, browser, g.URL+"/private")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, g.paths.Login, loc.Path)
	returnTo := loc.Query().Get(auth.ReturnToParam)
	assert.Equal(t, g.URL+"/private", returnTo)

	assert.Equal(t, g.URL+"/private", g.login(t, browser, returnTo))

	resp = get(t, browser, g.URL+"/private")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body api.LoginStatusResponse
	decode(t, resp, &body)
	assert.True(t, body.IsLoggedIn)

	resp = get(t, browser, g.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "auth_gateway_auth_guard_redirects_total 1")
	assert.Contains(t, string(raw), `auth_gateway_auth_flows_total{flow="callback",outcome="success"} 1`)
}

func TestCallbackWithoutLogin(t *testing.T) {
	g := newGateway(t, "mux")
	resp := get(t, testutil.NewBrowser(t), g.URL+"/callback?code=abc&state=xyz")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body api.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "invalid_request", body.Error)
}
