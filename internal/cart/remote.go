package cart

import (
	"context"

	"github.com/liminara-shop/storefront/internal/backend"
	"github.com/liminara-shop/storefront/internal/domain"
)

// mutationBackend is the uniform surface both cart backends expose, so call
// sites delegate to whichever one resolveBackend picked instead of branching
// on authentication state themselves.
type mutationBackend interface {
	AddToCart(ctx context.Context, product domain.Product, quantity int) error
	RemoveFromCart(ctx context.Context, productID string) error
	// ToggleWishlist reports whether the product ended up saved.
	ToggleWishlist(ctx context.Context, product domain.Product) (bool, error)
	CartItems(ctx context.Context) ([]domain.CartLineItem, error)
	WishlistEntries(ctx context.Context) ([]domain.WishlistEntry, error)
}

// localBackend adapts LocalStore to the backend surface. Guest mutations are
// synchronous same-process writes, so the context is unused.
type localBackend struct {
	store *LocalStore
}

func (b localBackend) AddToCart(_ context.Context, product domain.Product, quantity int) error {
	return b.store.AddToCart(product, quantity)
}

func (b localBackend) RemoveFromCart(_ context.Context, productID string) error {
	return b.store.RemoveFromCart(productID)
}

func (b localBackend) ToggleWishlist(_ context.Context, product domain.Product) (bool, error) {
	return b.store.ToggleWishlist(product)
}

func (b localBackend) CartItems(_ context.Context) ([]domain.CartLineItem, error) {
	return b.store.CartItems()
}

func (b localBackend) WishlistEntries(_ context.Context) ([]domain.WishlistEntry, error) {
	return b.store.WishlistEntries()
}

// remoteBackend issues authenticated calls against the commerce API.
type remoteBackend struct {
	svc   backend.Service
	token string
}

func (b remoteBackend) AddToCart(ctx context.Context, product domain.Product, quantity int) error {
	return b.svc.AddCartItem(ctx, b.token, product.ID, quantity)
}

func (b remoteBackend) RemoveFromCart(ctx context.Context, productID string) error {
	return b.svc.RemoveCartItem(ctx, b.token, productID)
}

func (b remoteBackend) ToggleWishlist(ctx context.Context, product domain.Product) (bool, error) {
	entries, err := b.svc.Wishlist(ctx, b.token)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.ProductID == product.ID {
			if err := b.svc.RemoveWishlistItem(ctx, b.token, product.ID); err != nil {
				return false, err
			}
			return false, nil
		}
	}
	if err := b.svc.AddWishlistItem(ctx, b.token, product.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (b remoteBackend) CartItems(ctx context.Context) ([]domain.CartLineItem, error) {
	return b.svc.Cart(ctx, b.token)
}

func (b remoteBackend) WishlistEntries(ctx context.Context) ([]domain.WishlistEntry, error) {
	return b.svc.Wishlist(ctx, b.token)
}
