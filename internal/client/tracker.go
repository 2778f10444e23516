package client

import (
	"context"
	"errors"
	"sync"
)

// State is what a UI renders: a loading flag, the last error, and the session.
type State struct {
	Loading         bool
	Err             error
	IsAuthenticated bool
	User            map[string]any
}

// Tracker keeps the session state of one browser. It is safe for concurrent use.
type Tracker struct {
	client *Client
	opts   []RequestOption

	mu    sync.RWMutex
	state State
}

// NewTracker starts in the loading state; call Refresh to resolve it.
func NewTracker(c *Client, opts ...RequestOption) *Tracker {
	return &Tracker{client: c, opts: opts, state: State{Loading: true}}
}

// State returns a snapshot.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Refresh re-reads /session.
func (t *Tracker) Refresh(ctx context.Context) State {
	t.mu.Lock()
	t.state.Loading = true
	t.mu.Unlock()

	session, err := t.client.Session(ctx, t.opts...)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State{
		Err:             err,
		IsAuthenticated: session.IsAuthenticated,
		User:            session.User,
	}
	return t.state
}

// FetchProfile loads full claims. A 401 reverts the tracker to anonymous and is not
// reported as an error.
func (t *Tracker) FetchProfile(ctx context.Context) (State, error) {
	user, err := t.client.Profile(ctx, t.opts...)

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case errors.Is(err, ErrSessionExpired):
		t.state.IsAuthenticated = false
		t.state.User = nil
		t.state.Err = nil
		return t.state, nil
	case err != nil:
		t.state.Err = err
		return t.state, err
	}
	t.state = State{IsAuthenticated: true, User: user}
	return t.state, nil
}
