package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/liminara-shop/storefront/internal/cart"
	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/platform/httpx"
)

// CartHandlers exposes the cart, wishlist, and badge endpoints. Guests and
// authenticated visitors hit the same routes; the reconciler decides where
// each operation lands.
type CartHandlers struct {
	deps Deps
}

// NewCartHandlers constructs handlers for the cart and wishlist endpoints.
func NewCartHandlers(deps Deps) *CartHandlers {
	return &CartHandlers{deps: deps}
}

// Routes wires the cart and wishlist endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/cart", h.getCart)
	r.Post("/cart", h.addToCart)
	r.Delete("/cart/{productID}", h.removeFromCart)
	r.Get("/wishlist", h.getWishlist)
	r.Post("/wishlist/toggle", h.toggleWishlist)
	r.Get("/badges", h.getBadges)
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

type toggleWishlistRequest struct {
	ProductID string `json:"product_id"`
}

type cartResponse struct {
	Items []domain.CartLineItem `json:"items"`
	Count int                   `json:"count"`
}

type wishlistResponse struct {
	Items []domain.WishlistEntry `json:"items"`
	Count int                    `json:"count"`
}

type mutationResponse struct {
	Stored  string `json:"stored,omitempty"`
	Ignored bool   `json:"ignored,omitempty"`
	Added   bool   `json:"added,omitempty"`
	Count   int    `json:"count"`
}

type badgesResponse struct {
	CartCount     int `json:"cart_count"`
	WishlistCount int `json:"wishlist_count"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	items, err := scope.carts.CartItems(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cartResponse{
		Items: items,
		Count: domain.CountQuantity(items),
	})
}

func (h *CartHandlers) addToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	var req addToCartRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.lookupProduct(r, req.ProductID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	outcome, err := scope.carts.AddToCart(ctx, product, req.Quantity)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	items, err := scope.carts.CartItems(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mutationResponse{
		Stored:  outcome.Stored,
		Ignored: outcome.Ignored,
		Count:   domain.CountQuantity(items),
	})
}

func (h *CartHandlers) removeFromCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	outcome, err := scope.carts.RemoveFromCart(ctx, productID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	items, err := scope.carts.CartItems(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mutationResponse{
		Stored: outcome.Stored,
		Count:  domain.CountQuantity(items),
	})
}

func (h *CartHandlers) getWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	entries, err := scope.carts.WishlistEntries(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wishlistResponse{
		Items: entries,
		Count: len(entries),
	})
}

func (h *CartHandlers) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	var req toggleWishlistRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	product, err := h.lookupProduct(r, req.ProductID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	outcome, err := scope.carts.ToggleWishlist(ctx, product)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	entries, err := scope.carts.WishlistEntries(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mutationResponse{
		Stored: outcome.Stored,
		Added:  outcome.Added,
		Count:  len(entries),
	})
}

// getBadges returns the header counters in one round trip.
func (h *CartHandlers) getBadges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	items, err := scope.carts.CartItems(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	entries, err := scope.carts.WishlistEntries(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, badgesResponse{
		CartCount:     domain.CountQuantity(items),
		WishlistCount: len(entries),
	})
}

func (h *CartHandlers) lookupProduct(r *http.Request, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, cart.ErrInvalidProduct
	}
	return h.deps.Backend.Product(r.Context(), productID)
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidProduct):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
	case errors.Is(err, cart.ErrInvalidQuantity):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity must be at least 1", http.StatusBadRequest))
	default:
		writeServiceError(ctx, w, err)
	}
}
