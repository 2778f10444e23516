package api

import (
	"log/slog"
	"net/http"
	"net/url"

	"auth-gateway/internal/auth"
)

// Paths are the login flow endpoints of one router variant.
type Paths struct {
	Login    string
	Callback string
	Logout   string
}

var (
	// MuxPaths is the gorilla/mux layout.
	MuxPaths = Paths{Login: "/login", Callback: "/callback", Logout: "/logout"}
	// ChiPaths is the chi layout.
	ChiPaths = Paths{Login: "/auth/login", Callback: "/auth/callback", Logout: "/auth/logout"}
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	service AuthService
	baseURL string
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService, baseURL string, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service: service,
		baseURL: baseURL,
		logger:  logger,
	}
}

// login redirects to the identity provider
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.service.Login(r.Context(), r.URL.Query().Get(auth.ReturnToParam), auth.NewStoreOptions(w, r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// callback completes the login and redirects to the stored return target
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	callbackURL, err := url.Parse(h.baseURL + r.URL.RequestURI())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
		return
	}

	returnTo, err := h.service.Callback(r.Context(), callbackURL, auth.NewStoreOptions(w, r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

// logout clears the session and redirects to the provider logout endpoint
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	logoutURL, err := h.service.Logout(r.Context(), r.URL.Query().Get(auth.ReturnToParam), auth.NewStoreOptions(w, r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, logoutURL, http.StatusFound)
}

// session reports whether the caller is logged in. An anonymous caller is not an error.
func (h *AuthHandler) session(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	user := h.currentUser(w, r)
	writeJSON(w, http.StatusOK, SessionResponse{IsAuthenticated: user != nil, User: user})
}

// profile returns the caller's claims, or 401
func (h *AuthHandler) profile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	user := h.currentUser(w, r)
	if user == nil {
		h.writeError(w, r, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{User: user})
}

// loginStatus backs / and /public
func (h *AuthHandler) loginStatus(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	writeJSON(w, http.StatusOK, LoginStatusResponse{IsLoggedIn: user != nil, User: user})
}

// private only runs behind RequireSession
func (h *AuthHandler) private(w http.ResponseWriter, r *http.Request) {
	session, err := auth.SessionFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, LoginStatusResponse{IsLoggedIn: true, User: session.User})
}

// currentUser returns nil for anonymous callers and for failed lookups.
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) map[string]any {
	session, err := h.service.GetSession(r.Context(), auth.NewStoreOptions(w, r))
	if err != nil {
		h.logger.Warn("session lookup failed", "path", r.URL.Path, "error", err)
		return nil
	}
	if session == nil {
		return nil
	}
	return session.User
}
