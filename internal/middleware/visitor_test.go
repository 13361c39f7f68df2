package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liminara-shop/storefront/internal/middleware"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
)

func newManager(t *testing.T) *middleware.VisitorManager {
	t.Helper()
	mgr, err := middleware.NewVisitorManager(middleware.VisitorConfig{
		CookieName: "test_visitor",
		HashKey:    []byte("12345678901234567890123456789012"),
		Backing:    kvstore.NewMemoryStore(),
	})
	require.NoError(t, err)
	return mgr
}

func TestNewVisitorGetsCookieAndStore(t *testing.T) {
	t.Parallel()

	mgr := newManager(t)

	var visitor middleware.Visitor
	handler := mgr.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		visitor, err = middleware.VisitorFromContext(r.Context())
		require.NoError(t, err)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	require.NotEmpty(t, visitor.ID)
	require.NotNil(t, visitor.Store)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "test_visitor", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
}

func TestReturningVisitorKeepsIdentityAndState(t *testing.T) {
	t.Parallel()

	mgr := newManager(t)

	var ids []string
	handler := mgr.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitor, err := middleware.VisitorFromContext(r.Context())
		require.NoError(t, err)
		ids = append(ids, visitor.ID)

		if len(ids) == 1 {
			require.NoError(t, kvstore.SetString(visitor.Store, "cart", "one line"))
			return
		}
		value, found, err := kvstore.GetString(visitor.Store, "cart")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "one line", value)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.AddCookie(cookies[0])
	handler.ServeHTTP(httptest.NewRecorder(), second)

	require.Len(t, ids, 2)
	require.Equal(t, ids[0], ids[1])

	// No new cookie is issued for a recognised visitor.
}

func TestTamperedCookieYieldsFreshVisitor(t *testing.T) {
	t.Parallel()

	mgr := newManager(t)

	var ids []string
	handler := mgr.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitor, err := middleware.VisitorFromContext(r.Context())
		require.NoError(t, err)
		ids = append(ids, visitor.ID)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: "test_visitor", Value: "forged-value"})
	handler.ServeHTTP(httptest.NewRecorder(), forged)

	require.Len(t, ids, 2)
	require.NotEqual(t, ids[0], ids[1])
}

func TestVisitorFromContextWithoutMiddleware(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := middleware.VisitorFromContext(req.Context())
	require.ErrorIs(t, err, middleware.ErrNoVisitor)
}
