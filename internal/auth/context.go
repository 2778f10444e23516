package auth

import (
	"context"
	"errors"
)

type contextKey struct{}

// sessionContextKey is the context key for the guarded request's session
var sessionContextKey = contextKey{}

var (
	// ErrNoSessionInContext is returned when no session is found in context
	ErrNoSessionInContext = errors.New("no session in context")
)

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *StateData) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext extracts the session RequireSession put on the request context
func SessionFromContext(ctx context.Context) (*StateData, error) {
	session, ok := ctx.Value(sessionContextKey).(*StateData)
	if !ok || session == nil {
		return nil, ErrNoSessionInContext
	}
	return session, nil
}

// MustSessionFromContext panics if no session in context (use after RequireSession)
func MustSessionFromContext(ctx context.Context) *StateData {
	session, err := SessionFromContext(ctx)
	if err != nil {
		panic("expected session in context")
	}
	return session
}
