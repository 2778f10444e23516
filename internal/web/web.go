// Package web is the server-rendered demo app that asks the gateway who the caller is.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"auth-gateway/internal/client"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{
	"index":     template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/index.html")),
	"dashboard": template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/dashboard.html")),
}

// Config points the app at the gateway.
type Config struct {
	AuthAPIURL string
	AppBaseURL string
}

type handler struct {
	client     *client.Client
	authAPIURL string
	appBaseURL string
	logger     *slog.Logger
}

type pageData struct {
	Title       string
	Session     *client.SessionData
	SessionJSON string
	UserJSON    string
	LoginURL    string
	LogoutURL   string
}

// NewHandler returns the app's router.
func NewHandler(c *client.Client, cfg Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		client:     c,
		authAPIURL: strings.TrimRight(cfg.AuthAPIURL, "/"),
		appBaseURL: strings.TrimRight(cfg.AppBaseURL, "/"),
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", h.index)
	r.Get("/dashboard", h.dashboard)
	return r
}

// loginURL is the gateway login link that brings the user back to returnTo.
func (h *handler) loginURL(returnTo string) string {
	return h.authAPIURL + "/auth/login?" + url.Values{"returnTo": {returnTo}}.Encode()
}

func (h *handler) logoutURL() string {
	return h.authAPIURL + "/auth/logout?" + url.Values{"returnTo": {h.appBaseURL}}.Encode()
}

// session forwards the inbound cookies to the gateway.
func (h *handler) session(r *http.Request) *client.SessionData {
	s, err := h.client.Session(r.Context(), client.WithCookies(r.Cookies()))
	if err != nil {
		h.logger.Warn("session fetch failed", "error", err)
	}
	return s
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index", h.page("Home", h.session(r)))
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if !s.IsAuthenticated {
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, h.loginURL(h.appBaseURL+"/dashboard"), http.StatusFound)
		return
	}
	h.render(w, "dashboard", h.page("Dashboard", s))
}

func (h *handler) page(title string, s *client.SessionData) pageData {
	sessionJSON, _ := json.MarshalIndent(s, "", "  ")
	userJSON, _ := json.MarshalIndent(s.User, "", "  ")
	return pageData{
		Title:       title,
		Session:     s,
		SessionJSON: string(sessionJSON),
		UserJSON:    string(userJSON),
		LoginURL:    h.loginURL(h.appBaseURL),
		LogoutURL:   h.logoutURL(),
	}
}

func (h *handler) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pages[name].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render page", "page", name, "error", err)
	}
}
