// Package redirect remembers where a visitor was headed before the login
// interruption and resumes that journey exactly once after a successful
// login.
package redirect

import (
	"errors"
	"strings"

	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
)

const (
	keyReturnURL         = "redirect:return_url"
	keyCheckoutProductID = "redirect:checkout_product_id"
	keyPendingAction     = "redirect:pending_action"
	// Written by older storefront builds; cleared on resume, never written.
	keyLegacyPendingProduct = "redirect:pending_product_id"

	homeTarget = "/"
)

// ErrStoreRequired indicates the continuity manager was constructed without a store.
var ErrStoreRequired = errors.New("redirect: store is required")

// Continuity stashes and restores the redirect intent for one visitor.
type Continuity struct {
	store kvstore.Store
}

// NewContinuity constructs a Continuity over the visitor-scoped store.
func NewContinuity(store kvstore.Store) (*Continuity, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	return &Continuity{store: store}, nil
}

// Capture stores the intent fields individually before the visitor is sent
// to authenticate. Empty fields are not written.
func (c *Continuity) Capture(intent domain.RedirectIntent) error {
	fields := []struct {
		key   string
		value string
	}{
		{keyReturnURL, strings.TrimSpace(intent.ReturnURL)},
		{keyCheckoutProductID, strings.TrimSpace(intent.CheckoutProductID)},
		{keyPendingAction, strings.TrimSpace(intent.PendingAction)},
	}
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		if err := kvstore.SetString(c.store, field.key, field.value); err != nil {
			return err
		}
	}
	return nil
}

// Peek returns the stored intent without consuming it.
func (c *Continuity) Peek() (domain.RedirectIntent, error) {
	var intent domain.RedirectIntent
	var err error
	if intent.ReturnURL, _, err = kvstore.GetString(c.store, keyReturnURL); err != nil {
		return domain.RedirectIntent{}, err
	}
	if intent.CheckoutProductID, _, err = kvstore.GetString(c.store, keyCheckoutProductID); err != nil {
		return domain.RedirectIntent{}, err
	}
	if intent.PendingAction, _, err = kvstore.GetString(c.store, keyPendingAction); err != nil {
		return domain.RedirectIntent{}, err
	}
	return intent, nil
}

// Resume consumes the stored intent and resolves the navigation target. All
// intent fields are cleared unconditionally, used or not; a second Resume
// without a new Capture yields the home fallback.
//
// Precedence: a return URL that is not itself a login page wins over a
// checkout product, which wins over home. The generic "come back here"
// intent should only beat the narrower "resume checkout" intent when it was
// explicitly set.
func (c *Continuity) Resume() (string, error) {
	intent, err := c.Peek()
	if err != nil {
		return "", err
	}

	for _, key := range []string{keyReturnURL, keyCheckoutProductID, keyPendingAction, keyLegacyPendingProduct} {
		if err := c.store.Delete(key); err != nil {
			return "", err
		}
	}

	return Target(intent), nil
}

// Target resolves an intent to a navigation target without touching storage.
func Target(intent domain.RedirectIntent) string {
	returnURL := strings.TrimSpace(intent.ReturnURL)
	if returnURL != "" && !isLoginPath(returnURL) {
		return returnURL
	}
	if productID := strings.TrimSpace(intent.CheckoutProductID); productID != "" {
		return "/product/" + productID
	}
	return homeTarget
}

func isLoginPath(target string) bool {
	trimmed := strings.TrimRight(target, "/")
	return trimmed == "/login" || trimmed == "/auth"
}
