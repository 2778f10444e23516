package auth

import (
	"net/http"
	"time"
)

// StoreOptions pairs the inbound request with its outbound response.
// It lives for one request and is handed explicitly to cookie handlers and stores.
type StoreOptions struct {
	Request  *http.Request
	Response http.ResponseWriter
}

// NewStoreOptions builds the per-request store options.
func NewStoreOptions(w http.ResponseWriter, r *http.Request) *StoreOptions {
	return &StoreOptions{Request: r, Response: w}
}

// CookieOptions are forwarded verbatim onto the written cookie.
type CookieOptions struct {
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   int
	SameSite http.SameSite
	Secure   bool
	HTTPOnly bool
}

// CookieHandler reads and writes cookies through a StoreOptions.
type CookieHandler interface {
	SetCookie(name, value string, opts *CookieOptions, store *StoreOptions) error
	// GetCookie reports ok=false for a missing cookie; err is only for missing context.
	GetCookie(name string, store *StoreOptions) (value string, ok bool, err error)
	GetCookies(store *StoreOptions) (map[string]string, error)
	DeleteCookie(name string, store *StoreOptions) error
}

// HTTPCookieHandler writes cookies straight onto net/http primitives.
// The gorilla/mux gateway composes its stores with this variant.
type HTTPCookieHandler struct{}

// NewHTTPCookieHandler creates an HTTPCookieHandler.
func NewHTTPCookieHandler() *HTTPCookieHandler {
	return &HTTPCookieHandler{}
}

func (HTTPCookieHandler) SetCookie(name, value string, opts *CookieOptions, store *StoreOptions) error {
	if store == nil || store.Response == nil {
		return ErrMissingContext
	}
	c := newCookie(name, value, opts)
	if c.Path == "" {
		c.Path = "/"
	}
	http.SetCookie(store.Response, c)
	return nil
}

func (HTTPCookieHandler) GetCookie(name string, store *StoreOptions) (string, bool, error) {
	return readCookie(name, store)
}

func (HTTPCookieHandler) GetCookies(store *StoreOptions) (map[string]string, error) {
	return readCookies(store)
}

func (HTTPCookieHandler) DeleteCookie(name string, store *StoreOptions) error {
	if store == nil || store.Response == nil {
		return ErrMissingContext
	}
	http.SetCookie(store.Response, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
	return nil
}

// ScopedCookieHandler applies a fixed path and domain to cookies that leave them unset,
// and clears cookies with the same scope. The chi gateway composes its stores with this
// variant so a router mounted under a prefix or a parent domain still drops its cookies.
type ScopedCookieHandler struct {
	path   string
	domain string
}

// NewScopedCookieHandler creates a ScopedCookieHandler. An empty path means "/".
func NewScopedCookieHandler(path, domain string) *ScopedCookieHandler {
	if path == "" {
		path = "/"
	}
	return &ScopedCookieHandler{path: path, domain: domain}
}

func (h *ScopedCookieHandler) SetCookie(name, value string, opts *CookieOptions, store *StoreOptions) error {
	if store == nil || store.Response == nil {
		return ErrMissingContext
	}
	c := newCookie(name, value, opts)
	if c.Path == "" {
		c.Path = h.path
	}
	if c.Domain == "" {
		c.Domain = h.domain
	}
	http.SetCookie(store.Response, c)
	return nil
}

func (h *ScopedCookieHandler) GetCookie(name string, store *StoreOptions) (string, bool, error) {
	return readCookie(name, store)
}

func (h *ScopedCookieHandler) GetCookies(store *StoreOptions) (map[string]string, error) {
	return readCookies(store)
}

func (h *ScopedCookieHandler) DeleteCookie(name string, store *StoreOptions) error {
	if store == nil || store.Response == nil {
		return ErrMissingContext
	}
	http.SetCookie(store.Response, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   h.path,
		Domain: h.domain,
		MaxAge: -1,
	})
	return nil
}

func newCookie(name, value string, opts *CookieOptions) *http.Cookie {
	c := &http.Cookie{Name: name, Value: value}
	if opts != nil {
		c.Domain = opts.Domain
		c.Path = opts.Path
		c.Expires = opts.Expires
		c.MaxAge = opts.MaxAge
		c.SameSite = opts.SameSite
		c.Secure = opts.Secure
		c.HttpOnly = opts.HTTPOnly
	}
	return c
}

func readCookie(name string, store *StoreOptions) (string, bool, error) {
	if store == nil || store.Request == nil {
		return "", false, ErrMissingContext
	}
	c, err := store.Request.Cookie(name)
	if err != nil {
		return "", false, nil
	}
	return c.Value, true, nil
}

func readCookies(store *StoreOptions) (map[string]string, error) {
	if store == nil || store.Request == nil {
		return nil, ErrMissingContext
	}
	cookies := store.Request.Cookies()
	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		// first occurrence wins, matching Request.Cookie
		if _, ok := out[c.Name]; !ok {
			out[c.Name] = c.Value
		}
	}
	return out, nil
}
