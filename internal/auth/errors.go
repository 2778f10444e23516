package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingContext is returned when a cookie operation runs without request/response context.
	ErrMissingContext = errors.New("store options not provided")

	// ErrUnauthenticated is returned when an operation requires a session and none exists.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrMissingTransaction is returned when a callback arrives without a pending login transaction.
	ErrMissingTransaction = errors.New("login transaction not found")

	// ErrStateMismatch is returned when the callback state does not match the pending transaction.
	ErrStateMismatch = errors.New("state parameter mismatch")
)

// UpstreamError wraps a failure reported by, or while talking to, the identity provider.
type UpstreamError struct {
	Op          string
	Code        string // provider error code, e.g. access_denied
	Description string
	Err         error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": upstream identity error"
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
