package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"auth-gateway/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// statusFor maps the auth error taxonomy onto HTTP.
func statusFor(err error) (int, ErrorResponse) {
	var upErr *auth.UpstreamError
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"}
	case errors.Is(err, auth.ErrMissingTransaction), errors.Is(err, auth.ErrStateMismatch):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "login transaction is missing or does not match"}
	case errors.As(err, &upErr):
		return http.StatusBadGateway, ErrorResponse{Error: "upstream_identity_error", Message: "identity provider request failed"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal_error"}
	}
}

// writeError logs err and writes a generic body; provider detail never reaches the client.
func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	switch {
	case status >= 500:
		h.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	case status != http.StatusUnauthorized:
		h.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}
