package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
)

const (
	cartKey     = "cart"
	wishlistKey = "wishlist"
	lastAddKey  = "cart:last_add"
)

// ErrLocalStoreRequired indicates a LocalStore was constructed without a store.
var ErrLocalStoreRequired = errors.New("cart: local store requires a kv store")

// LocalStore is the guest-side persisted cart and wishlist. It enforces the
// one-line-per-product invariant and captures product snapshots at add time
// so entries stay renderable without the catalog.
type LocalStore struct {
	store kvstore.Store
	now   func() time.Time
	newID func() string
}

// NewLocalStore constructs a LocalStore over the visitor-scoped store.
func NewLocalStore(store kvstore.Store) (*LocalStore, error) {
	if store == nil {
		return nil, ErrLocalStoreRequired
	}
	return &LocalStore{
		store: store,
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}, nil
}

// WithClock overrides the time source, for tests.
func (l *LocalStore) WithClock(now func() time.Time) *LocalStore {
	if now != nil {
		l.now = now
	}
	return l
}

// CartItems returns the guest cart lines.
func (l *LocalStore) CartItems() ([]domain.CartLineItem, error) {
	items := []domain.CartLineItem{}
	if _, err := kvstore.GetJSON(l.store, cartKey, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart increments the existing line for the product or inserts a new
// one with a locally generated line id.
func (l *LocalStore) AddToCart(product domain.Product, quantity int) error {
	items, err := l.CartItems()
	if err != nil {
		return err
	}

	updated := false
	for i := range items {
		if items[i].ProductID == product.ID {
			items[i].Quantity += quantity
			updated = true
			break
		}
	}
	if !updated {
		items = append(items, domain.CartLineItem{
			LineID:    fmt.Sprintf("local-%s-%s", product.ID, l.newID()),
			ProductID: product.ID,
			Quantity:  quantity,
			Product:   product.Snapshot(),
			AddedAt:   l.now().UTC(),
		})
	}
	return kvstore.SetJSON(l.store, cartKey, items)
}

// RemoveFromCart drops the line for the product, if any.
func (l *LocalStore) RemoveFromCart(productID string) error {
	items, err := l.CartItems()
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	return kvstore.SetJSON(l.store, cartKey, kept)
}

// WishlistEntries returns the guest wishlist.
func (l *LocalStore) WishlistEntries() ([]domain.WishlistEntry, error) {
	entries := []domain.WishlistEntry{}
	if _, err := kvstore.GetJSON(l.store, wishlistKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ToggleWishlist adds the product when absent and removes it when present,
// reporting whether the product ended up saved.
func (l *LocalStore) ToggleWishlist(product domain.Product) (bool, error) {
	entries, err := l.WishlistEntries()
	if err != nil {
		return false, err
	}

	kept := entries[:0]
	removed := false
	for _, entry := range entries {
		if entry.ProductID == product.ID {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		kept = append(kept, domain.WishlistEntry{
			ProductID: product.ID,
			Product:   product.Snapshot(),
			AddedAt:   l.now().UTC(),
		})
	}
	if err := kvstore.SetJSON(l.store, wishlistKey, kept); err != nil {
		return false, err
	}
	return !removed, nil
}

// LastCartAdd returns the timestamp of the most recent successful cart add,
// zero when none is recorded.
func (l *LocalStore) LastCartAdd() (time.Time, error) {
	raw, found, err := kvstore.GetString(l.store, lastAddKey)
	if err != nil || !found {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, nil
	}
	return ts, nil
}

// RecordCartAdd stores the cooldown anchor after a successful add.
func (l *LocalStore) RecordCartAdd(at time.Time) error {
	return kvstore.SetString(l.store, lastAddKey, at.UTC().Format(time.RFC3339Nano))
}
