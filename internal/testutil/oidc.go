// Package testutil provides an in-process OpenID Connect provider for tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
)

const (
	TestClientID     = "test-client-id"
	TestClientSecret = "test-client-secret"
	testKeyID        = "test-key"
)

type pendingCode struct {
	nonce         string
	codeChallenge string
	redirectURI   string
}

// OIDCProvider is a minimal authorization-code + PKCE provider backed by httptest.
type OIDCProvider struct {
	Server *httptest.Server
	key    *rsa.PrivateKey
	signer jose.Signer

	mu sync.Mutex
	// Claims are copied into every issued ID token.
	Claims map[string]any
	// FailToken makes the token endpoint answer 500.
	FailToken bool
	// EndSession controls whether discovery advertises end_session_endpoint.
	EndSession bool
	codes      map[string]pendingCode
	exchanges  int
}

// NewOIDCProvider starts a provider and registers its shutdown with t.Cleanup.
func NewOIDCProvider(t testing.TB) *OIDCProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", testKeyID),
	)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	p := &OIDCProvider{
		key:        key,
		signer:     signer,
		EndSession: true,
		codes:      make(map[string]pendingCode),
		Claims: map[string]any{
			"sub":   "auth0|user-123",
			"email": "test@example.com",
			"name":  "Test User",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", p.discovery)
	mux.HandleFunc("/.well-known/jwks.json", p.jwks)
	mux.HandleFunc("/authorize", p.authorize)
	mux.HandleFunc("/oauth/token", p.token)
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)

	return p
}

// Issuer returns the issuer URL, with the trailing slash Auth0 uses.
func (p *OIDCProvider) Issuer() string {
	return p.Server.URL + "/"
}

// Exchanges returns how many successful code exchanges happened.
func (p *OIDCProvider) Exchanges() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchanges
}

// SetClaims replaces the claims put into subsequent ID tokens.
func (p *OIDCProvider) SetClaims(claims map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Claims = claims
}

func (p *OIDCProvider) discovery(w http.ResponseWriter, r *http.Request) {
	doc := map[string]any{
		"issuer":                                p.Issuer(),
		"authorization_endpoint":                p.Server.URL + "/authorize",
		"token_endpoint":                        p.Server.URL + "/oauth/token",
		"jwks_uri":                              p.Server.URL + "/.well-known/jwks.json",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"code_challenge_methods_supported":      []string{"S256"},
	}
	p.mu.Lock()
	if p.EndSession {
		doc["end_session_endpoint"] = p.Server.URL + "/oidc/logout"
	}
	p.mu.Unlock()
	writeJSON(w, http.StatusOK, doc)
}

func (p *OIDCProvider) jwks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &p.key.PublicKey,
		KeyID:     testKeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
}

// authorize approves every request immediately and redirects back with a code.
func (p *OIDCProvider) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirectURI := q.Get("redirect_uri")
	if q.Get("client_id") != TestClientID || redirectURI == "" {
		http.Error(w, "bad client", http.StatusBadRequest)
		return
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		http.Error(w, "pkce required", http.StatusBadRequest)
		return
	}

	code := randomString()
	p.mu.Lock()
	p.codes[code] = pendingCode{
		nonce:         q.Get("nonce"),
		codeChallenge: q.Get("code_challenge"),
		redirectURI:   redirectURI,
	}
	p.mu.Unlock()

	u, err := url.Parse(redirectURI)
	if err != nil {
		http.Error(w, "bad redirect_uri", http.StatusBadRequest)
		return
	}
	rq := u.Query()
	rq.Set("code", code)
	rq.Set("state", q.Get("state"))
	u.RawQuery = rq.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

func (p *OIDCProvider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID, clientSecret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if clientID != TestClientID || clientSecret != TestClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailToken {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	code := r.PostForm.Get("code")
	pending, ok := p.codes[code]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}
	// codes are single use
	delete(p.codes, code)

	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != pending.codeChallenge {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "pkce mismatch"})
		return
	}

	now := time.Now()
	claims := map[string]any{}
	for k, v := range p.Claims {
		claims[k] = v
	}
	claims["iss"] = p.Issuer()
	claims["aud"] = TestClientID
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(time.Hour).Unix()
	if pending.nonce != "" {
		claims["nonce"] = pending.nonce
	}

	idToken, err := p.sign(claims)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	p.exchanges++

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  "access-" + randomString(),
		"refresh_token": "refresh-" + randomString(),
		"id_token":      idToken,
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
}

func (p *OIDCProvider) sign(claims map[string]any) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	jws, err := p.signer.Sign(payload)
	if err != nil {
		return "", err
	}
	return jws.CompactSerialize()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func randomString() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
