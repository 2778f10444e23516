package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionRepo stores server-side session records for StatefulStateStore.
type SessionRepo interface {
	// Get returns nil, nil when the record does not exist or has expired.
	Get(ctx context.Context, id string) (*StateData, error)
	Set(ctx context.Context, id string, state *StateData, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type sessionPointer struct {
	ID string `json:"id"`
}

// StatefulStateStore keeps only a sealed session id in the cookie; the record lives in a SessionRepo.
type StatefulStateStore struct {
	sealer  *Sealer
	cookies CookieHandler
	repo    SessionRepo
	config  SessionConfiguration
	secure  bool
}

// NewStatefulStateStore creates a repo-backed state store keyed by secret.
func NewStatefulStateStore(secret string, cookies CookieHandler, repo SessionRepo, config SessionConfiguration, secure bool) (*StatefulStateStore, error) {
	sealer, err := NewSealer(secret, "session-id")
	if err != nil {
		return nil, err
	}
	return &StatefulStateStore{sealer: sealer, cookies: cookies, repo: repo, config: config, secure: secure}, nil
}

func (s *StatefulStateStore) Set(ctx context.Context, state *StateData, removeIfExists bool, store *StoreOptions) error {
	id, err := s.sessionID(store)
	if err != nil {
		return err
	}
	// a completed login never inherits the id the browser arrived with
	if removeIfExists && id != "" {
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		id = ""
	}
	if id == "" {
		id = uuid.NewString()
	}

	touch(state, time.Now())
	expires := s.config.ExpiresAt(state)

	if err := s.repo.Set(ctx, id, state, expires); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	value, err := s.sealer.Seal(SessionCookieName, sessionPointer{ID: id})
	if err != nil {
		return err
	}
	return s.cookies.SetCookie(SessionCookieName, value, sessionCookieOptions(expires, s.secure), store)
}

func (s *StatefulStateStore) Get(ctx context.Context, store *StoreOptions) (*StateData, error) {
	id, err := s.sessionID(store)
	if err != nil || id == "" {
		return nil, err
	}
	state, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if state == nil || !time.Now().Before(s.config.ExpiresAt(state)) {
		return nil, nil
	}
	return state, nil
}

func (s *StatefulStateStore) Delete(ctx context.Context, store *StoreOptions) error {
	id, err := s.sessionID(store)
	if err != nil {
		return err
	}
	if id != "" {
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	return s.cookies.DeleteCookie(SessionCookieName, store)
}

// sessionID returns "" when the browser holds no readable session cookie.
func (s *StatefulStateStore) sessionID(store *StoreOptions) (string, error) {
	value, ok, err := s.cookies.GetCookie(SessionCookieName, store)
	if err != nil || !ok {
		return "", err
	}
	var ptr sessionPointer
	if err := s.sealer.Open(SessionCookieName, value, &ptr); err != nil {
		return "", nil
	}
	return ptr.ID, nil
}
