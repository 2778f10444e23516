package auth

import (
	"context"
	"net/http"
	"time"
)

const (
	// TransactionCookieName holds the pending login between /login and /callback.
	TransactionCookieName = "__a0_tx"

	defaultTransactionTTL = time.Hour
)

// TransactionStore keeps the pending login transaction for one browser.
type TransactionStore interface {
	Set(ctx context.Context, tx *TransactionData, store *StoreOptions) error
	// Get returns nil, nil when no valid transaction is present.
	Get(ctx context.Context, store *StoreOptions) (*TransactionData, error)
	Delete(ctx context.Context, store *StoreOptions) error
}

// CookieTransactionStore seals the transaction into a short-lived cookie.
type CookieTransactionStore struct {
	sealer  *Sealer
	cookies CookieHandler
	ttl     time.Duration
	secure  bool
}

// NewCookieTransactionStore creates a transaction store keyed by secret.
func NewCookieTransactionStore(secret string, cookies CookieHandler, secure bool) (*CookieTransactionStore, error) {
	sealer, err := NewSealer(secret, "transaction")
	if err != nil {
		return nil, err
	}
	return &CookieTransactionStore{
		sealer:  sealer,
		cookies: cookies,
		ttl:     defaultTransactionTTL,
		secure:  secure,
	}, nil
}

func (s *CookieTransactionStore) Set(_ context.Context, tx *TransactionData, store *StoreOptions) error {
	if tx.ExpiresAt == 0 {
		tx.ExpiresAt = time.Now().Add(s.ttl).Unix()
	}
	value, err := s.sealer.Seal(TransactionCookieName, tx)
	if err != nil {
		return err
	}
	return s.cookies.SetCookie(TransactionCookieName, value, &CookieOptions{
		MaxAge:   int(s.ttl.Seconds()),
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
		HTTPOnly: true,
	}, store)
}

func (s *CookieTransactionStore) Get(_ context.Context, store *StoreOptions) (*TransactionData, error) {
	value, ok, err := s.cookies.GetCookie(TransactionCookieName, store)
	if err != nil {
		return nil, err
	}
	if !ok || value == "" {
		return nil, nil
	}
	var tx TransactionData
	if err := s.sealer.Open(TransactionCookieName, value, &tx); err != nil {
		// unreadable or forged transaction cookies are treated as absent
		return nil, nil
	}
	if time.Now().Unix() >= tx.ExpiresAt {
		return nil, nil
	}
	return &tx, nil
}

func (s *CookieTransactionStore) Delete(_ context.Context, store *StoreOptions) error {
	return s.cookies.DeleteCookie(TransactionCookieName, store)
}
