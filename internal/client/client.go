// Package client calls the gateway's /session and /profile endpoints on behalf of
// server-rendered pages and command line tools.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ErrSessionExpired is returned by Profile when the gateway answers 401.
var ErrSessionExpired = errors.New("session expired")

// SessionData mirrors the gateway's /session body.
type SessionData struct {
	IsAuthenticated bool           `json:"isAuthenticated"`
	User            map[string]any `json:"user"`
}

// Anonymous is the session of a caller without a valid session.
func Anonymous() *SessionData {
	return &SessionData{}
}

// Client talks to one gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithCookieJar gives the client a jar so cookies set by the gateway stick between calls.
func WithCookieJar() Option {
	return func(cl *Client) {
		// cookiejar.New always returns a nil error
		jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		hc := *cl.httpClient
		hc.Jar = jar
		cl.httpClient = &hc
	}
}

// New creates a client for the gateway at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the gateway URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOption adjusts one outgoing request.
type RequestOption func(*http.Request)

// WithCookies forwards cookies, typically the inbound request's, to the gateway.
func WithCookies(cookies []*http.Cookie) RequestOption {
	return func(r *http.Request) {
		for _, ck := range cookies {
			r.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
		}
	}
}

// WithCookieHeader forwards a raw Cookie header.
func WithCookieHeader(header string) RequestOption {
	return func(r *http.Request) {
		if header != "" {
			r.Header.Set("Cookie", header)
		}
	}
}

// Session fetches the caller's session state. Any non-2xx status is reported as
// anonymous without an error. Transport failures return anonymous and the error.
func (c *Client) Session(ctx context.Context, opts ...RequestOption) (*SessionData, error) {
	resp, err := c.get(ctx, "/session", opts)
	if err != nil {
		return Anonymous(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Anonymous(), nil
	}

	var data SessionData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Anonymous(), fmt.Errorf("failed to decode session: %w", err)
	}
	return &data, nil
}

// Profile fetches the caller's claims. A 401 yields ErrSessionExpired.
func (c *Client) Profile(ctx context.Context, opts ...RequestOption) (map[string]any, error) {
	resp, err := c.get(ctx, "/profile", opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("profile fetch failed: %d", resp.StatusCode)
	}

	var body struct {
		User map[string]any `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return body.User, nil
}

func (c *Client) get(ctx context.Context, path string, opts []RequestOption) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	for _, opt := range opts {
		opt(req)
	}
	return c.httpClient.Do(req)
}
