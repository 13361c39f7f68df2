package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
	"github.com/liminara-shop/storefront/internal/session"
)

func signedTestToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:  "user-1",
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestManagerRequiresStore(t *testing.T) {
	t.Parallel()

	_, err := session.NewManager(nil)
	require.ErrorIs(t, err, session.ErrStoreRequired)
}

func TestLoginLogoutLifecycle(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()
	mgr, err := session.NewManager(store)
	require.NoError(t, err)

	require.False(t, mgr.IsAuthenticated())
	require.Empty(t, mgr.Token())
	require.Nil(t, mgr.User())

	user := domain.User{ID: "user-1", Name: "Asha", Phone: "9876543210"}
	token := signedTestToken(t)
	require.NoError(t, mgr.Login(user, token))

	require.True(t, mgr.IsAuthenticated())
	require.Equal(t, token, mgr.Token())
	require.NotNil(t, mgr.User())
	require.Equal(t, "Asha", mgr.User().Name)

	sess, err := mgr.Current()
	require.NoError(t, err)
	require.False(t, sess.LoginAt.IsZero())

	require.NoError(t, mgr.Logout())
	require.False(t, mgr.IsAuthenticated())
	require.Nil(t, mgr.User())
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	mgr, err := session.NewManager(kvstore.NewMemoryStore())
	require.NoError(t, err)
	require.Error(t, mgr.Login(domain.User{ID: "u"}, "  "))
}

func TestMalformedTokenMeansGuest(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()
	mgr, err := session.NewManager(store)
	require.NoError(t, err)

	// A user record with a garbage token must not count as logged in.
	require.NoError(t, mgr.Login(domain.User{ID: "user-2"}, "not-a-jwt"))
	require.False(t, mgr.IsAuthenticated())
}

func TestTokenWellFormed(t *testing.T) {
	t.Parallel()

	require.False(t, session.TokenWellFormed(""))
	require.False(t, session.TokenWellFormed("abc.def"))
	require.True(t, session.TokenWellFormed(signedTestToken(t)))
}

func TestSessionsAreVisitorScoped(t *testing.T) {
	t.Parallel()

	backing := kvstore.NewMemoryStore()
	first, err := session.NewManager(kvstore.Namespace(backing, "visitor:a"))
	require.NoError(t, err)
	second, err := session.NewManager(kvstore.Namespace(backing, "visitor:b"))
	require.NoError(t, err)

	require.NoError(t, first.Login(domain.User{ID: "user-a"}, signedTestToken(t)))
	require.True(t, first.IsAuthenticated())
	require.False(t, second.IsAuthenticated())
}
