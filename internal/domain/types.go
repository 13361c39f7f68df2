package domain

import (
	"strings"
	"time"
)

// Product captures the catalog fields the storefront needs for display and
// for snapshotting into guest carts and wishlists.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Price         string `json:"price"`
	OriginalPrice string `json:"original_price,omitempty"`
	DealPrice     string `json:"deal_price,omitempty"`
	IsDeal        bool   `json:"is_deal,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	Stock         int    `json:"stock,omitempty"`
	Category      string `json:"category,omitempty"`
}

// DisplayPrice returns the deal price when the product is an active deal,
// falling back to the regular price.
func (p Product) DisplayPrice() string {
	if p.IsDeal && strings.TrimSpace(p.DealPrice) != "" {
		return p.DealPrice
	}
	return p.Price
}

// ProductSnapshot is the subset of product fields captured at add time so
// guest cart and wishlist rows stay renderable without a catalog lookup.
type ProductSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
}

// Snapshot reduces a product to its display snapshot.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.DisplayPrice(),
		ImageURL: p.ImageURL,
	}
}

// CartLineItem is a single cart row. LineID is server-assigned for remote
// carts and locally generated for guest entries. A cart holds at most one
// line per product; repeated adds increment Quantity.
type CartLineItem struct {
	LineID    string          `json:"line_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
	AddedAt   time.Time       `json:"added_at,omitempty"`
}

// WishlistEntry marks a product as saved. Entries have set semantics keyed
// by product id.
type WishlistEntry struct {
	ProductID string          `json:"product_id"`
	Product   ProductSnapshot `json:"product"`
	AddedAt   time.Time       `json:"added_at,omitempty"`
}

// User is the authenticated customer profile returned by OTP verification.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// RedirectIntent records where a visitor was headed before being interrupted
// by the login requirement. Fields are stored individually and consumed
// exactly once after a successful login.
type RedirectIntent struct {
	ReturnURL         string `json:"return_url,omitempty"`
	CheckoutProductID string `json:"checkout_product_id,omitempty"`
	PendingAction     string `json:"pending_action,omitempty"`
}

// CountQuantity sums line quantities, the number badge counters display.
func CountQuantity(items []CartLineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
