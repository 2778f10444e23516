package auth

import (
	"encoding/json"
	"time"
)

// StateData is the session of record: what the state store persists after a successful login.
type StateData struct {
	User         map[string]any  `json:"user"`
	IDToken      string          `json:"id_token,omitempty"`
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	TokenType    string          `json:"token_type,omitempty"`
	ExpiresAt    int64           `json:"expires_at,omitempty"` // access token expiry, unix seconds
	Internal     SessionInternal `json:"internal"`
}

// SessionInternal carries bookkeeping the state store uses to enforce lifetimes.
type SessionInternal struct {
	SID       string `json:"sid,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Subject returns the sub claim, or "" when missing.
func (s *StateData) Subject() string {
	if s == nil {
		return ""
	}
	sub, _ := s.User["sub"].(string)
	return sub
}

// SessionConfiguration bounds how long a session stays valid.
type SessionConfiguration struct {
	Rolling            bool
	AbsoluteDuration   time.Duration
	InactivityDuration time.Duration
}

// DefaultSessionConfiguration is rolling, three days absolute, one day inactivity.
func DefaultSessionConfiguration() SessionConfiguration {
	return SessionConfiguration{
		Rolling:            true,
		AbsoluteDuration:   3 * 24 * time.Hour,
		InactivityDuration: 24 * time.Hour,
	}
}

// ExpiresAt returns when state stops being valid.
func (c SessionConfiguration) ExpiresAt(state *StateData) time.Time {
	absolute := time.Unix(state.Internal.CreatedAt, 0).Add(c.AbsoluteDuration)
	if !c.Rolling {
		return absolute
	}
	inactive := time.Unix(state.Internal.UpdatedAt, 0).Add(c.InactivityDuration)
	if inactive.Before(absolute) {
		return inactive
	}
	return absolute
}

// StartLoginOptions configures StartInteractiveLogin.
type StartLoginOptions struct {
	// AppState is returned unchanged from CompleteInteractiveLogin.
	AppState any
	// AuthorizationParams are appended to the authorization URL.
	AuthorizationParams map[string]string
}

// CompleteLoginResult is returned by CompleteInteractiveLogin.
type CompleteLoginResult struct {
	AppState json.RawMessage
	Session  *StateData
}

// DecodeAppState unmarshals the app state passed at login into v.
// It is a no-op when no app state was stored.
func (r *CompleteLoginResult) DecodeAppState(v any) error {
	if r == nil || len(r.AppState) == 0 || string(r.AppState) == "null" {
		return nil
	}
	return json.Unmarshal(r.AppState, v)
}

// LogoutOptions configures Logout.
type LogoutOptions struct {
	ReturnTo string
}

// TransactionData is the pending login kept between /login and /callback.
type TransactionData struct {
	State        string          `json:"state"`
	Nonce        string          `json:"nonce"`
	CodeVerifier string          `json:"code_verifier"`
	AppState     json.RawMessage `json:"app_state,omitempty"`
	ExpiresAt    int64           `json:"expires_at"`
}
