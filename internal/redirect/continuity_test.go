package redirect_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
	"github.com/liminara-shop/storefront/internal/redirect"
)

func newContinuity(t *testing.T) (*redirect.Continuity, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	c, err := redirect.NewContinuity(store)
	require.NoError(t, err)
	return c, store
}

func TestTargetPrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		intent domain.RedirectIntent
		want   string
	}{
		{
			name:   "return url wins",
			intent: domain.RedirectIntent{ReturnURL: "/wishlist", CheckoutProductID: "42"},
			want:   "/wishlist",
		},
		{
			name:   "login return url is skipped",
			intent: domain.RedirectIntent{ReturnURL: "/login", CheckoutProductID: "42"},
			want:   "/product/42",
		},
		{
			name:   "auth return url is skipped",
			intent: domain.RedirectIntent{ReturnURL: "/auth/"},
			want:   "/",
		},
		{
			name:   "checkout product over home",
			intent: domain.RedirectIntent{CheckoutProductID: "7"},
			want:   "/product/7",
		},
		{
			name:   "empty intent goes home",
			intent: domain.RedirectIntent{},
			want:   "/",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, redirect.Target(tc.intent))
		})
	}
}

func TestCaptureAndPeek(t *testing.T) {
	t.Parallel()

	c, _ := newContinuity(t)
	require.NoError(t, c.Capture(domain.RedirectIntent{
		ReturnURL:         " /cart ",
		CheckoutProductID: "9",
		PendingAction:     "add-to-cart",
	}))

	intent, err := c.Peek()
	require.NoError(t, err)
	require.Equal(t, "/cart", intent.ReturnURL)
	require.Equal(t, "9", intent.CheckoutProductID)
	require.Equal(t, "add-to-cart", intent.PendingAction)
}

func TestResumeConsumesIntentExactlyOnce(t *testing.T) {
	t.Parallel()

	c, _ := newContinuity(t)
	require.NoError(t, c.Capture(domain.RedirectIntent{CheckoutProductID: "3"}))

	target, err := c.Resume()
	require.NoError(t, err)
	require.Equal(t, "/product/3", target)

	// A second resume without a new capture falls back to home.
	target, err = c.Resume()
	require.NoError(t, err)
	require.Equal(t, "/", target)

	intent, err := c.Peek()
	require.NoError(t, err)
	require.Empty(t, intent.CheckoutProductID)
}

func TestResumeClearsUnusedFields(t *testing.T) {
	t.Parallel()

	c, _ := newContinuity(t)
	require.NoError(t, c.Capture(domain.RedirectIntent{
		ReturnURL:         "/orders",
		CheckoutProductID: "5",
		PendingAction:     "buy-now",
	}))

	target, err := c.Resume()
	require.NoError(t, err)
	require.Equal(t, "/orders", target)

	// The losing fields must not leak into the next login.
	intent, err := c.Peek()
	require.NoError(t, err)
	require.Equal(t, domain.RedirectIntent{}, intent)
}

func TestResumeClearsLegacyPendingProductKey(t *testing.T) {
	t.Parallel()

	c, store := newContinuity(t)
	require.NoError(t, kvstore.SetString(store, "redirect:pending_product_id", "11"))

	target, err := c.Resume()
	require.NoError(t, err)
	require.Equal(t, "/", target)

	_, found, err := kvstore.GetString(store, "redirect:pending_product_id")
	require.NoError(t, err)
	require.False(t, found)
}
