package kvstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liminara-shop/storefront/internal/platform/kvstore"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()

	_, found, err := store.Get("missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set("greeting", []byte("hello")))
	value, found, err := store.Get("greeting")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("hello"), value)

	require.NoError(t, store.Delete("greeting"))
	_, found, err = store.Get("greeting")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()
	require.ErrorIs(t, store.Set("", []byte("x")), kvstore.ErrEmptyKey)
	_, _, err := store.Get("")
	require.ErrorIs(t, err, kvstore.ErrEmptyKey)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()
	original := []byte("immutable")
	require.NoError(t, store.Set("k", original))
	original[0] = 'X'

	value, _, err := store.Get("k")
	require.NoError(t, err)
	require.Equal(t, []byte("immutable"), value)
}

func TestNamespaceIsolation(t *testing.T) {
	t.Parallel()

	backing := kvstore.NewMemoryStore()
	alice := kvstore.Namespace(backing, "visitor:alice")
	bob := kvstore.Namespace(backing, "visitor:bob")

	require.NoError(t, kvstore.SetString(alice, "cart", "alice-cart"))
	require.NoError(t, kvstore.SetString(bob, "cart", "bob-cart"))

	value, found, err := kvstore.GetString(alice, "cart")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice-cart", value)

	require.NoError(t, alice.Delete("cart"))
	_, found, err = kvstore.GetString(alice, "cart")
	require.NoError(t, err)
	require.False(t, found)

	value, found, err = kvstore.GetString(bob, "cart")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "bob-cart", value)
}

func TestJSONHelpers(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var out payload
	found, err := kvstore.GetJSON(store, "payload", &out)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, kvstore.SetJSON(store, "payload", payload{Name: "chair", Count: 2}))
	found, err = kvstore.GetJSON(store, "payload", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, payload{Name: "chair", Count: 2}, out)
}
