// Package middleware carries the storefront's HTTP middleware. The visitor
// middleware assigns every browser an opaque identifier in a signed cookie
// and scopes all per-visitor storage to it.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"

	"github.com/liminara-shop/storefront/internal/platform/kvstore"
)

const defaultCookieName = "liminara_visitor"

type contextKey string

const visitorContextKey contextKey = "storefront.visitor"

// ErrNoVisitor indicates a request that did not pass through the visitor
// middleware.
var ErrNoVisitor = errors.New("middleware: no visitor on context")

// Visitor is the per-request identity established by the middleware.
type Visitor struct {
	ID    string
	Store kvstore.Store
}

// VisitorConfig controls cookie encoding for the visitor middleware.
type VisitorConfig struct {
	CookieName string
	// HashKey signs the cookie. Required in production; when empty an
	// ephemeral key is generated, so identifiers do not survive restarts.
	HashKey []byte
	// BlockKey additionally encrypts the cookie value when set.
	BlockKey     []byte
	CookieSecure bool
	// Backing is the shared store visitor namespaces are carved out of.
	Backing kvstore.Store
}

// VisitorManager decodes and issues visitor cookies.
type VisitorManager struct {
	cookieName   string
	codec        *securecookie.SecureCookie
	cookieSecure bool
	backing      kvstore.Store
}

// NewVisitorManager constructs a VisitorManager from the given configuration.
func NewVisitorManager(cfg VisitorConfig) (*VisitorManager, error) {
	if cfg.Backing == nil {
		return nil, errors.New("middleware: backing store is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	hashKey := cfg.HashKey
	if len(hashKey) == 0 {
		hashKey = make([]byte, 32)
		if _, err := rand.Read(hashKey); err != nil {
			return nil, fmt.Errorf("middleware: generate hash key: %w", err)
		}
	}

	codec := securecookie.New(hashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &VisitorManager{
		cookieName:   cfg.CookieName,
		codec:        codec,
		cookieSecure: cfg.CookieSecure,
		backing:      cfg.Backing,
	}, nil
}

// Handler resolves or issues the visitor identity and stores it on the
// request context. New visitors receive a signed cookie on the response.
func (m *VisitorManager) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, fresh := m.resolve(r)
		if fresh {
			m.issue(w, id)
		}

		visitor := Visitor{
			ID:    id,
			Store: kvstore.Namespace(m.backing, "visitor:"+id),
		}
		ctx := context.WithValue(r.Context(), visitorContextKey, visitor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *VisitorManager) resolve(r *http.Request) (id string, fresh bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err == nil {
		var stored string
		if err := m.codec.Decode(m.cookieName, cookie.Value, &stored); err == nil && stored != "" {
			return stored, false
		}
	}
	return ulid.Make().String(), true
}

func (m *VisitorManager) issue(w http.ResponseWriter, id string) {
	encoded, err := m.codec.Encode(m.cookieName, id)
	if err != nil {
		// A visitor without a cookie simply starts over next request.
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		Secure:   m.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// VisitorFromContext returns the visitor established by Handler.
func VisitorFromContext(ctx context.Context) (Visitor, error) {
	visitor, ok := ctx.Value(visitorContextKey).(Visitor)
	if !ok || visitor.ID == "" {
		return Visitor{}, ErrNoVisitor
	}
	return visitor, nil
}
