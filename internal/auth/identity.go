package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// Client performs the interactive login, session lookup and logout flows.
// It holds no per-request state; all per-browser state goes through the stores.
type Client struct {
	oidc         *OIDCClient
	transactions TransactionStore
	states       StateStore
}

// NewClient composes an identity client.
func NewClient(oidcClient *OIDCClient, transactions TransactionStore, states StateStore) *Client {
	return &Client{
		oidc:         oidcClient,
		transactions: transactions,
		states:       states,
	}
}

// StartInteractiveLogin records a login transaction and returns the provider authorization URL.
func (c *Client) StartInteractiveLogin(ctx context.Context, opts StartLoginOptions, store *StoreOptions) (*url.URL, error) {
	state, err := randomToken()
	if err != nil {
		return nil, err
	}
	nonce, err := randomToken()
	if err != nil {
		return nil, err
	}
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}

	tx := &TransactionData{
		State:        state,
		Nonce:        nonce,
		CodeVerifier: verifier,
	}
	if opts.AppState != nil {
		appState, err := json.Marshal(opts.AppState)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal app state: %w", err)
		}
		tx.AppState = appState
	}

	if err := c.transactions.Set(ctx, tx, store); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	authURL, err := url.Parse(c.oidc.GetAuthURLWithPKCE(state, nonce, GenerateCodeChallenge(verifier), opts.AuthorizationParams))
	if err != nil {
		return nil, fmt.Errorf("invalid authorization url: %w", err)
	}
	return authURL, nil
}

// CompleteInteractiveLogin validates the authorization response in callbackURL,
// exchanges the code, and establishes the session.
func (c *Client) CompleteInteractiveLogin(ctx context.Context, callbackURL *url.URL, store *StoreOptions) (*CompleteLoginResult, error) {
	tx, err := c.transactions.Get(ctx, store)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrMissingTransaction
	}

	q := callbackURL.Query()
	// state first: an unauthenticated callback must not touch the pending login
	if q.Get("state") != tx.State {
		return nil, ErrStateMismatch
	}
	if code := q.Get("error"); code != "" {
		// the transaction is spent either way
		_ = c.transactions.Delete(ctx, store)
		return nil, &UpstreamError{Op: "authorize", Code: code, Description: q.Get("error_description")}
	}
	code := q.Get("code")
	if code == "" {
		return nil, &UpstreamError{Op: "authorize", Code: "missing_code"}
	}

	token, err := c.oidc.ExchangeCodeWithPKCE(ctx, code, tx.CodeVerifier)
	if err != nil {
		return nil, upstream("token exchange", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, &UpstreamError{Op: "token exchange", Code: "missing_id_token"}
	}

	idToken, err := c.oidc.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		return nil, upstream("verify id token", err)
	}
	if idToken.Nonce != tx.Nonce {
		return nil, &UpstreamError{Op: "verify id token", Code: "nonce_mismatch"}
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, upstream("parse claims", err)
	}

	session := newStateData(claims, rawIDToken, token)
	if err := c.states.Set(ctx, session, true, store); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if err := c.transactions.Delete(ctx, store); err != nil {
		return nil, err
	}

	return &CompleteLoginResult{AppState: tx.AppState, Session: session}, nil
}

// GetSession returns the current session, or nil for an anonymous caller.
func (c *Client) GetSession(ctx context.Context, store *StoreOptions) (*StateData, error) {
	return c.states.Get(ctx, store)
}

// GetUser returns the current user's claims, or nil for an anonymous caller.
func (c *Client) GetUser(ctx context.Context, store *StoreOptions) (map[string]any, error) {
	session, err := c.states.Get(ctx, store)
	if err != nil || session == nil {
		return nil, err
	}
	return session.User, nil
}

// Logout clears the local session and returns the provider logout URL.
func (c *Client) Logout(ctx context.Context, opts LogoutOptions, store *StoreOptions) (*url.URL, error) {
	var idTokenHint string
	if session, err := c.states.Get(ctx, store); err == nil && session != nil {
		idTokenHint = session.IDToken
	}
	if err := c.states.Delete(ctx, store); err != nil {
		return nil, err
	}
	return c.oidc.LogoutURL(opts.ReturnTo, idTokenHint)
}

func newStateData(claims map[string]any, rawIDToken string, token *oauth2.Token) *StateData {
	s := &StateData{
		User:         claims,
		IDToken:      rawIDToken,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		s.ExpiresAt = token.Expiry.Unix()
	}
	return s
}
