package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

var tracer = otel.Tracer("auth-gateway/internal/auth")

// ProviderConfig configures the OIDC client.
type ProviderConfig struct {
	Issuer       string // e.g. https://tenant.auth0.com/
	Domain       string // tenant domain used for the /v2/logout fallback
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Audience     string
	// HTTPClient is used for discovery, JWKS and token calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// OIDCClient wraps OIDC provider and OAuth2 configuration
type OIDCClient struct {
	provider           *oidc.Provider
	verifier           *oidc.IDTokenVerifier
	oauth2Config       oauth2.Config
	endSessionEndpoint string
	logoutFallback     string
	clientID           string
	audience           string
	httpClient         *http.Client
}

// NewOIDCClient creates a new OIDC client
func NewOIDCClient(ctx context.Context, cfg ProviderConfig) (*OIDCClient, error) {
	ctx, span := tracer.Start(ctx, "oidc.discovery", trace.WithAttributes(attribute.String("oidc.issuer", cfg.Issuer)))
	defer span.End()

	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	// Initialize OIDC provider (discovers .well-known/openid-configuration)
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, fmt.Errorf("failed to read provider metadata: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	// Configure OAuth2
	oauth2Config := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}

	// Configure JWT verifier
	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	logoutFallback := ""
	if cfg.Domain != "" {
		logoutFallback = (&url.URL{Scheme: "https", Host: cfg.Domain, Path: "/v2/logout"}).String()
	}

	return &OIDCClient{
		provider:           provider,
		verifier:           verifier,
		oauth2Config:       oauth2Config,
		endSessionEndpoint: extra.EndSessionEndpoint,
		logoutFallback:     logoutFallback,
		clientID:           cfg.ClientID,
		audience:           cfg.Audience,
		httpClient:         cfg.HTTPClient,
	}, nil
}

// GetAuthURLWithPKCE returns the OIDC authorization URL with state, nonce and PKCE parameters
func (c *OIDCClient) GetAuthURLWithPKCE(state, nonce, codeChallenge string, params map[string]string) string {
	opts := []oauth2.AuthCodeOption{
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if c.audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", c.audience))
	}
	for k, v := range params {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return c.oauth2Config.AuthCodeURL(state, opts...)
}

// ExchangeCodeWithPKCE exchanges authorization code for tokens using PKCE
func (c *OIDCClient) ExchangeCodeWithPKCE(ctx context.Context, code string, codeVerifier string) (*oauth2.Token, error) {
	ctx, span := tracer.Start(ctx, "oidc.token_exchange")
	defer span.End()

	token, err := c.oauth2Config.Exchange(c.withHTTPClient(ctx), code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token exchange failed")
		return nil, err
	}
	return token, nil
}

// VerifyIDToken verifies and parses the ID token
func (c *OIDCClient) VerifyIDToken(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	ctx, span := tracer.Start(ctx, "oidc.verify_id_token")
	defer span.End()

	idToken, err := c.verifier.Verify(c.withHTTPClient(ctx), rawIDToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "id token rejected")
		return nil, err
	}
	return idToken, nil
}

// LogoutURL builds the provider logout URL.
// Providers advertising end_session_endpoint get RP-initiated logout; otherwise
// the Auth0 /v2/logout endpoint is used.
func (c *OIDCClient) LogoutURL(returnTo, idTokenHint string) (*url.URL, error) {
	if c.endSessionEndpoint != "" {
		u, err := url.Parse(c.endSessionEndpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid end_session_endpoint: %w", err)
		}
		q := u.Query()
		q.Set("client_id", c.clientID)
		if returnTo != "" {
			q.Set("post_logout_redirect_uri", returnTo)
		}
		if idTokenHint != "" {
			q.Set("id_token_hint", idTokenHint)
		}
		u.RawQuery = q.Encode()
		return u, nil
	}

	if c.logoutFallback == "" {
		return nil, fmt.Errorf("provider has no end_session_endpoint and no domain is configured")
	}
	u, err := url.Parse(c.logoutFallback)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("client_id", c.clientID)
	if returnTo != "" {
		q.Set("returnTo", returnTo)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

func (c *OIDCClient) withHTTPClient(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return oidc.ClientContext(ctx, c.httpClient)
}

// === PKCE Support ===

// GenerateCodeVerifier generates a random code verifier for PKCE
// Returns a base64-url-encoded random string (43-128 characters)
func GenerateCodeVerifier() (string, error) {
	return randomToken()
}

// GenerateCodeChallenge generates a code challenge from the verifier
// Uses SHA256 and base64-url encoding as per RFC 7636
func GenerateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// randomToken returns 32 random bytes, base64-url encoded without padding.
func randomToken() (string, error) {
	data := make([]byte, 32)
	if _, err := rand.Read(data); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}
