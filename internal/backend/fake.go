package backend

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"

	"github.com/liminara-shop/storefront/internal/domain"
)

// Fake is an in-memory Service used by tests and by local development when no
// backend URL is configured. It mirrors the real backend's contract closely
// enough to exercise the whole login and cart flow offline: codes are
// deterministic per identifier and tokens are well-formed JWTs.
type Fake struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	order     []string
	otps      map[string]string
	pending   map[string]string
	users     map[string]domain.User
	tokens    map[string]string
	carts     map[string][]domain.CartLineItem
	wishlists map[string][]domain.WishlistEntry

	signingKey []byte
	now        func() time.Time
	newID      func() string
}

// NewFake constructs an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		products:   make(map[string]domain.Product),
		order:      []string{},
		otps:       make(map[string]string),
		pending:    make(map[string]string),
		users:      make(map[string]domain.User),
		tokens:     make(map[string]string),
		carts:      make(map[string][]domain.CartLineItem),
		wishlists:  make(map[string][]domain.WishlistEntry),
		signingKey: []byte("liminara-fake-backend"),
		now:        time.Now,
		newID:      func() string { return ulid.Make().String() },
	}
}

// SeedProducts loads catalog entries, replacing any with the same id.
func (f *Fake) SeedProducts(products []domain.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			continue
		}
		if _, exists := f.products[id]; !exists {
			f.order = append(f.order, id)
		}
		f.products[id] = p
	}
}

// OTPFor exposes the deterministic code for an identifier so local
// development and tests can complete the verify step.
func (f *Fake) OTPFor(identifier string) string {
	return deterministicOTP(strings.TrimSpace(identifier))
}

// ExpireToken invalidates a previously issued token, simulating a session
// expiring server-side while the storefront still believes it is logged in.
func (f *Fake) ExpireToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

// RequestOTP implements Service.
func (f *Fake) RequestOTP(_ context.Context, req OTPRequest) error {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return &APIError{Status: 400, Message: "Identifier is required"}
	}
	method := strings.TrimSpace(req.Method)
	if method != "phone" && method != "email" {
		return &APIError{Status: 400, Message: "Method must be phone or email"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.otps[identifier] = deterministicOTP(identifier)
	if name := strings.TrimSpace(req.Name); name != "" {
		f.pending[identifier] = name
	}
	return nil
}

// VerifyOTP implements Service.
func (f *Fake) VerifyOTP(_ context.Context, identifier, code string) (VerifyResult, error) {
	identifier = strings.TrimSpace(identifier)
	code = strings.TrimSpace(code)

	f.mu.Lock()
	defer f.mu.Unlock()

	expected, ok := f.otps[identifier]
	if !ok || expected != code {
		return VerifyResult{}, &APIError{Status: 401, Message: "Invalid OTP"}
	}
	delete(f.otps, identifier)

	user, ok := f.users[identifier]
	if !ok {
		user = domain.User{
			ID:   f.newID(),
			Name: f.pending[identifier],
		}
		if strings.Contains(identifier, "@") {
			user.Email = identifier
		} else {
			user.Phone = identifier
		}
		f.users[identifier] = user
		delete(f.pending, identifier)
	}

	token, err := f.mintToken(user)
	if err != nil {
		return VerifyResult{}, &APIError{Status: 500, Message: "Failed to issue token"}
	}
	f.tokens[token] = user.ID
	return VerifyResult{User: user, Token: token}, nil
}

// Cart implements Service.
func (f *Fake) Cart(_ context.Context, token string) ([]domain.CartLineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	userID, err := f.authenticate(token)
	if err != nil {
		return nil, err
	}
	return cloneLines(f.carts[userID]), nil
}

// AddCartItem implements Service.
func (f *Fake) AddCartItem(_ context.Context, token, productID string, quantity int) error {
	productID = strings.TrimSpace(productID)
	if quantity < 1 {
		return &APIError{Status: 400, Message: "Quantity must be at least 1"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	userID, err := f.authenticate(token)
	if err != nil {
		return err
	}
	product, ok := f.products[productID]
	if !ok {
		return &APIError{Status: 404, Message: "Product not found"}
	}

	items := f.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			f.carts[userID] = items
			return nil
		}
	}
	f.carts[userID] = append(items, domain.CartLineItem{
		LineID:    f.newID(),
		ProductID: productID,
		Quantity:  quantity,
		Product:   product.Snapshot(),
		AddedAt:   f.now().UTC(),
	})
	return nil
}

// RemoveCartItem implements Service.
func (f *Fake) RemoveCartItem(_ context.Context, token, productID string) error {
	productID = strings.TrimSpace(productID)

	f.mu.Lock()
	defer f.mu.Unlock()

	userID, err := f.authenticate(token)
	if err != nil {
		return err
	}
	items := f.carts[userID]
	kept := items[:0]
	for _, item := range items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	f.carts[userID] = kept
	return nil
}

// Wishlist implements Service.
func (f *Fake) Wishlist(_ context.Context, token string) ([]domain.WishlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	userID, err := f.authenticate(token)
	if err != nil {
		return nil, err
	}
	return cloneEntries(f.wishlists[userID]), nil
}

// AddWishlistItem implements Service.
func (f *Fake) AddWishlistItem(_ context.Context, token, productID string) error {
	productID = strings.TrimSpace(productID)

	f.mu.Lock()
	defer f.mu.Unlock()

	userID, err := f.authenticate(token)
	if err != nil {
		return err
	}
	product, ok := f.products[productID]
	if !ok {
		return &APIError{Status: 404, Message: "Product not found"}
	}

	for _, entry := range f.wishlists[userID] {
		if entry.ProductID == productID {
			return nil
		}
	}
	f.wishlists[userID] = append(f.wishlists[userID], domain.WishlistEntry{
		ProductID: productID,
		Product:   product.Snapshot(),
		AddedAt:   f.now().UTC(),
	})
	return nil
}

// RemoveWishlistItem implements Service.
func (f *Fake) RemoveWishlistItem(_ context.Context, token, productID string) error {
	productID = strings.TrimSpace(productID)

	f.mu.Lock()
	defer f.mu.Unlock()

	userID, err := f.authenticate(token)
	if err != nil {
		return err
	}
	entries := f.wishlists[userID]
	kept := entries[:0]
	for _, entry := range entries {
		if entry.ProductID != productID {
			kept = append(kept, entry)
		}
	}
	f.wishlists[userID] = kept
	return nil
}

// Products implements Service.
func (f *Fake) Products(_ context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.Product, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.products[id])
	}
	return out, nil
}

// Product implements Service.
func (f *Fake) Product(_ context.Context, productID string) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[strings.TrimSpace(productID)]
	if !ok {
		return domain.Product{}, &APIError{Status: 404, Message: "Product not found"}
	}
	return product, nil
}

func (f *Fake) authenticate(token string) (string, error) {
	userID, ok := f.tokens[strings.TrimSpace(token)]
	if !ok {
		return "", &APIError{Status: 401, Message: "Authentication required"}
	}
	return userID, nil
}

func (f *Fake) mintToken(user domain.User) (string, error) {
	now := f.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(30 * 24 * time.Hour)),
		Issuer:    "liminara-fake-backend",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.signingKey)
}

func deterministicOTP(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	n := binary.BigEndian.Uint32(sum[:4]) % 1000000
	return fmt.Sprintf("%06d", n)
}

func cloneLines(items []domain.CartLineItem) []domain.CartLineItem {
	out := make([]domain.CartLineItem, len(items))
	copy(out, items)
	return out
}

func cloneEntries(entries []domain.WishlistEntry) []domain.WishlistEntry {
	out := make([]domain.WishlistEntry, len(entries))
	copy(out, entries)
	return out
}
