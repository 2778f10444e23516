package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// SessionCookieName holds the session, or its chunks as SessionCookieName.0, .1, ...
	SessionCookieName = "__a0_session"

	// maxCookieValueSize keeps each cookie under common browser limits with room for attributes.
	maxCookieValueSize = 3072
)

// StateStore persists the session of record for one browser.
type StateStore interface {
	// Set saves state. removeIfExists drops whatever session the browser
	// already holds so the new one gets a fresh identity.
	Set(ctx context.Context, state *StateData, removeIfExists bool, store *StoreOptions) error
	// Get returns nil, nil for an anonymous or expired session.
	Get(ctx context.Context, store *StoreOptions) (*StateData, error)
	Delete(ctx context.Context, store *StoreOptions) error
}

type sealedState struct {
	State     *StateData `json:"state"`
	ExpiresAt int64      `json:"exp"`
}

// StatelessStateStore keeps the whole session inside sealed cookies.
// Values too large for one cookie are split across numbered chunk cookies.
type StatelessStateStore struct {
	sealer  *Sealer
	cookies CookieHandler
	config  SessionConfiguration
	secure  bool
}

// NewStatelessStateStore creates a cookie-only state store keyed by secret.
func NewStatelessStateStore(secret string, cookies CookieHandler, config SessionConfiguration, secure bool) (*StatelessStateStore, error) {
	sealer, err := NewSealer(secret, "session")
	if err != nil {
		return nil, err
	}
	return &StatelessStateStore{sealer: sealer, cookies: cookies, config: config, secure: secure}, nil
}

func (s *StatelessStateStore) Set(_ context.Context, state *StateData, _ bool, store *StoreOptions) error {
	touch(state, time.Now())
	expires := s.config.ExpiresAt(state)

	value, err := s.sealer.Seal(SessionCookieName, sealedState{State: state, ExpiresAt: expires.Unix()})
	if err != nil {
		return err
	}

	existing, err := s.cookies.GetCookies(store)
	if err != nil {
		return err
	}

	opts := sessionCookieOptions(expires, s.secure)

	if len(value) <= maxCookieValueSize {
		if err := s.cookies.SetCookie(SessionCookieName, value, opts, store); err != nil {
			return err
		}
		return s.deleteChunks(existing, 0, store)
	}

	n := 0
	for start := 0; start < len(value); start += maxCookieValueSize {
		end := min(start+maxCookieValueSize, len(value))
		if err := s.cookies.SetCookie(chunkName(n), value[start:end], opts, store); err != nil {
			return err
		}
		n++
	}
	if _, ok := existing[SessionCookieName]; ok {
		if err := s.cookies.DeleteCookie(SessionCookieName, store); err != nil {
			return err
		}
	}
	return s.deleteChunks(existing, n, store)
}

func (s *StatelessStateStore) Get(_ context.Context, store *StoreOptions) (*StateData, error) {
	cookies, err := s.cookies.GetCookies(store)
	if err != nil {
		return nil, err
	}

	value, ok := cookies[SessionCookieName]
	if !ok {
		var b strings.Builder
		for i := 0; ; i++ {
			chunk, ok := cookies[chunkName(i)]
			if !ok {
				break
			}
			b.WriteString(chunk)
		}
		value = b.String()
	}
	if value == "" {
		return nil, nil
	}

	var sealed sealedState
	if err := s.sealer.Open(SessionCookieName, value, &sealed); err != nil {
		// a cookie we cannot open is not a session
		return nil, nil
	}
	if sealed.State == nil || time.Now().Unix() >= sealed.ExpiresAt {
		return nil, nil
	}
	return sealed.State, nil
}

func (s *StatelessStateStore) Delete(_ context.Context, store *StoreOptions) error {
	existing, err := s.cookies.GetCookies(store)
	if err != nil {
		return err
	}
	if err := s.cookies.DeleteCookie(SessionCookieName, store); err != nil {
		return err
	}
	return s.deleteChunks(existing, 0, store)
}

// deleteChunks clears chunk cookies with index >= from that the browser sent.
func (s *StatelessStateStore) deleteChunks(existing map[string]string, from int, store *StoreOptions) error {
	prefix := SessionCookieName + "."
	for name := range existing {
		idx, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		i, err := strconv.Atoi(idx)
		if err != nil || i < from {
			continue
		}
		if err := s.cookies.DeleteCookie(name, store); err != nil {
			return err
		}
	}
	return nil
}

func chunkName(i int) string {
	return SessionCookieName + "." + strconv.Itoa(i)
}

func touch(state *StateData, now time.Time) {
	if state.Internal.CreatedAt == 0 {
		state.Internal.CreatedAt = now.Unix()
	}
	state.Internal.UpdatedAt = now.Unix()
}

func sessionCookieOptions(expires time.Time, secure bool) *CookieOptions {
	return &CookieOptions{
		Expires:  expires,
		MaxAge:   max(int(time.Until(expires).Seconds()), 1),
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		HTTPOnly: true,
	}
}
