// Package cart decides, per mutation, whether cart and wishlist writes hit
// the guest store or the remote commerce API, and guarantees the UI-facing
// contract either way: one change event per successful mutation, one line
// per product, a short cooldown on repeated cart adds.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liminara-shop/storefront/internal/backend"
	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/notify"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
	"github.com/liminara-shop/storefront/internal/session"
)

const defaultCooldown = time.Second

// Stored reports which backend absorbed a mutation.
const (
	StoredRemote = "remote"
	StoredLocal  = "local"
)

var (
	// ErrInvalidProduct indicates the product has no id.
	ErrInvalidProduct = errors.New("cart: product id is required")
	// ErrInvalidQuantity indicates a quantity below one.
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")

	errSessionsRequired = errors.New("cart: session manager is required")
	errStoreRequired    = errors.New("cart: visitor store is required")
	errBackendRequired  = errors.New("cart: backend service is required")
)

// Outcome describes a completed mutation.
type Outcome struct {
	// Stored is StoredRemote or StoredLocal; empty when Ignored.
	Stored string
	// Ignored is set when a cart add landed inside the cooldown window.
	Ignored bool
	// FellBack is set when a believed-authenticated mutation was rejected
	// with an authentication error and re-applied to guest storage.
	FellBack bool
	// Added reports wishlist membership after a toggle.
	Added bool
}

// Config wires the reconciler's dependencies for one visitor.
type Config struct {
	Sessions *session.Manager
	Store    kvstore.Store
	Backend  backend.Service
	Bus      *notify.Bus
	// VisitorID tags published events.
	VisitorID string
	// Cooldown is the window after a successful cart add during which
	// repeats are ignored. Zero means the default of one second.
	Cooldown time.Duration
	Clock    func() time.Time
}

// Reconciler mediates between guest storage and the remote API. It owns no
// data of its own.
type Reconciler struct {
	sessions  *session.Manager
	local     *LocalStore
	remote    backend.Service
	bus       *notify.Bus
	visitorID string
	cooldown  time.Duration
	now       func() time.Time
}

// New constructs a Reconciler enforcing dependency validation.
func New(cfg Config) (*Reconciler, error) {
	if cfg.Sessions == nil {
		return nil, errSessionsRequired
	}
	if cfg.Store == nil {
		return nil, errStoreRequired
	}
	if cfg.Backend == nil {
		return nil, errBackendRequired
	}

	local, err := NewLocalStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = defaultCooldown
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	local.WithClock(now)

	bus := cfg.Bus
	if bus == nil {
		bus = notify.NewBus()
	}

	return &Reconciler{
		sessions:  cfg.Sessions,
		local:     local,
		remote:    cfg.Backend,
		bus:       bus,
		visitorID: strings.TrimSpace(cfg.VisitorID),
		cooldown:  cooldown,
		now:       now,
	}, nil
}

// Local exposes the guest store, mainly for tests.
func (r *Reconciler) Local() *LocalStore {
	return r.local
}

// resolveBackend is the single authenticated-vs-guest decision point: every
// mutation and read delegates to whichever backend it returns.
func (r *Reconciler) resolveBackend() (mutationBackend, bool) {
	if r.sessions.IsAuthenticated() {
		return remoteBackend{svc: r.remote, token: r.sessions.Token()}, true
	}
	return localBackend{store: r.local}, false
}

// AddToCart adds the product to whichever cart this visitor owns. Repeated
// calls inside the cooldown window after a successful add are ignored.
func (r *Reconciler) AddToCart(ctx context.Context, product domain.Product, quantity int) (Outcome, error) {
	if strings.TrimSpace(product.ID) == "" {
		return Outcome{}, ErrInvalidProduct
	}
	if quantity < 1 {
		return Outcome{}, ErrInvalidQuantity
	}

	if r.cooldown > 0 {
		lastAdd, err := r.local.LastCartAdd()
		if err != nil {
			return Outcome{}, err
		}
		if !lastAdd.IsZero() && r.now().Sub(lastAdd) < r.cooldown {
			return Outcome{Ignored: true}, nil
		}
	}

	target, remote := r.resolveBackend()
	outcome := Outcome{Stored: storedLabel(remote)}

	err := target.AddToCart(ctx, product, quantity)
	if remote && errors.Is(err, backend.ErrUnauthenticated) {
		// Token no longer honoured server-side; apply the mutation to guest
		// storage so the click is not lost.
		outcome.Stored = StoredLocal
		outcome.FellBack = true
		err = r.local.AddToCart(product, quantity)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("cart: add: %w", err)
	}

	if err := r.local.RecordCartAdd(r.now()); err != nil {
		return Outcome{}, err
	}
	r.publish(ctx, notify.KindCartUpdated, product.ID, outcome)
	return outcome, nil
}

// RemoveFromCart removes the product's line from the visitor's cart.
func (r *Reconciler) RemoveFromCart(ctx context.Context, productID string) (Outcome, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Outcome{}, ErrInvalidProduct
	}

	target, remote := r.resolveBackend()
	outcome := Outcome{Stored: storedLabel(remote)}

	err := target.RemoveFromCart(ctx, productID)
	if remote && errors.Is(err, backend.ErrUnauthenticated) {
		outcome.Stored = StoredLocal
		outcome.FellBack = true
		err = r.local.RemoveFromCart(productID)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("cart: remove: %w", err)
	}

	r.publish(ctx, notify.KindCartUpdated, productID, outcome)
	return outcome, nil
}

// ToggleWishlist flips wishlist membership for the product.
func (r *Reconciler) ToggleWishlist(ctx context.Context, product domain.Product) (Outcome, error) {
	if strings.TrimSpace(product.ID) == "" {
		return Outcome{}, ErrInvalidProduct
	}

	target, remote := r.resolveBackend()
	outcome := Outcome{Stored: storedLabel(remote)}

	added, err := target.ToggleWishlist(ctx, product)
	if remote && errors.Is(err, backend.ErrUnauthenticated) {
		outcome.Stored = StoredLocal
		outcome.FellBack = true
		added, err = r.local.ToggleWishlist(product)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("cart: wishlist toggle: %w", err)
	}
	outcome.Added = added

	r.publish(ctx, notify.KindWishlistUpdated, product.ID, outcome)
	return outcome, nil
}

// CartItems returns the cart the visitor currently sees, remote when
// authenticated, guest otherwise.
func (r *Reconciler) CartItems(ctx context.Context) ([]domain.CartLineItem, error) {
	target, remote := r.resolveBackend()
	items, err := target.CartItems(ctx)
	if remote && errors.Is(err, backend.ErrUnauthenticated) {
		return r.local.CartItems()
	}
	if err != nil {
		return nil, fmt.Errorf("cart: fetch: %w", err)
	}
	return items, nil
}

// WishlistEntries returns the wishlist the visitor currently sees.
func (r *Reconciler) WishlistEntries(ctx context.Context) ([]domain.WishlistEntry, error) {
	target, remote := r.resolveBackend()
	entries, err := target.WishlistEntries(ctx)
	if remote && errors.Is(err, backend.ErrUnauthenticated) {
		return r.local.WishlistEntries()
	}
	if err != nil {
		return nil, fmt.Errorf("cart: wishlist fetch: %w", err)
	}
	return entries, nil
}

func storedLabel(remote bool) string {
	if remote {
		return StoredRemote
	}
	return StoredLocal
}

func (r *Reconciler) publish(ctx context.Context, kind notify.Kind, productID string, outcome Outcome) {
	r.bus.Publish(notify.Event{
		Kind:      kind,
		VisitorID: r.visitorID,
		ProductID: productID,
		Stored:    outcome.Stored,
		Count:     r.badgeCount(ctx, kind, outcome.Stored),
	})
}

// badgeCount computes the post-mutation badge value so event consumers never
// need a second round-trip. Best effort: -1 when the count is unavailable.
func (r *Reconciler) badgeCount(ctx context.Context, kind notify.Kind, stored string) int {
	var target mutationBackend = localBackend{store: r.local}
	if stored == StoredRemote {
		target = remoteBackend{svc: r.remote, token: r.sessions.Token()}
	}

	switch kind {
	case notify.KindCartUpdated:
		items, err := target.CartItems(ctx)
		if err != nil {
			return -1
		}
		return domain.CountQuantity(items)
	case notify.KindWishlistUpdated:
		entries, err := target.WishlistEntries(ctx)
		if err != nil {
			return -1
		}
		return len(entries)
	}
	return -1
}
