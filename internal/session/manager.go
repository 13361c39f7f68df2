// Package session holds the storefront's view of "who is logged in". The
// session is persisted in the visitor store so it survives reloads, and is
// consulted synchronously — answering IsAuthenticated never touches the
// network.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
)

const storageKey = "session"

// ErrStoreRequired indicates the manager was constructed without a store.
var ErrStoreRequired = errors.New("session: store is required")

// Session is the persisted payload: nullable user plus the bearer token.
type Session struct {
	User      *domain.User `json:"user,omitempty"`
	Token     string       `json:"token,omitempty"`
	LoginAt   time.Time    `json:"login_at,omitempty"`
	UpdatedAt time.Time    `json:"updated_at,omitempty"`
}

// Manager loads and persists the session for a single visitor.
type Manager struct {
	store kvstore.Store
	now   func() time.Time
}

// NewManager constructs a Manager over the visitor-scoped store.
func NewManager(store kvstore.Store) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	return &Manager{store: store, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// Current returns the persisted session, empty when none exists.
func (m *Manager) Current() (Session, error) {
	var sess Session
	if _, err := kvstore.GetJSON(m.store, storageKey, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Login stores the user and token returned by OTP verification.
func (m *Manager) Login(user domain.User, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session: token is required")
	}
	now := m.now().UTC()
	sess := Session{
		User:      &user,
		Token:     token,
		LoginAt:   now,
		UpdatedAt: now,
	}
	if err := kvstore.SetJSON(m.store, storageKey, sess); err != nil {
		return fmt.Errorf("session: persist login: %w", err)
	}
	return nil
}

// Logout clears both user and token.
func (m *Manager) Logout() error {
	if err := m.store.Delete(storageKey); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// Token returns the stored bearer token, empty when logged out.
func (m *Manager) Token() string {
	sess, err := m.Current()
	if err != nil {
		return ""
	}
	return sess.Token
}

// User returns the stored user profile, nil when logged out.
func (m *Manager) User() *domain.User {
	sess, err := m.Current()
	if err != nil {
		return nil
	}
	return sess.User
}

// IsAuthenticated reports whether a structurally valid token is present.
// Token *verification* belongs to the backend; a malformed or absent token
// simply means this visitor shops as a guest.
func (m *Manager) IsAuthenticated() bool {
	sess, err := m.Current()
	if err != nil || sess.User == nil {
		return false
	}
	return TokenWellFormed(sess.Token)
}

// TokenWellFormed checks that the token parses as a JWT without verifying
// its signature.
func TokenWellFormed(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	parser := jwt.NewParser()
	_, _, err := parser.ParseUnverified(token, &jwt.RegisteredClaims{})
	return err == nil
}
