package backend_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liminara-shop/storefront/internal/backend"
	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/session"
)

func TestFakeOTPFlowIssuesWellFormedToken(t *testing.T) {
	t.Parallel()

	fake := backend.NewFake()
	ctx := context.Background()

	require.NoError(t, fake.RequestOTP(ctx, backend.OTPRequest{Identifier: "9876543210", Method: "phone", Name: "Asha"}))

	// Codes are deterministic per identifier so the flow works offline.
	code := fake.OTPFor("9876543210")
	require.Len(t, code, 6)
	require.Equal(t, code, fake.OTPFor("9876543210"))

	result, err := fake.VerifyOTP(ctx, "9876543210", code)
	require.NoError(t, err)
	require.Equal(t, "9876543210", result.User.Phone)
	require.Equal(t, "Asha", result.User.Name)
	require.True(t, session.TokenWellFormed(result.Token))
}

func TestFakeRejectsWrongCode(t *testing.T) {
	t.Parallel()

	fake := backend.NewFake()
	ctx := context.Background()
	require.NoError(t, fake.RequestOTP(ctx, backend.OTPRequest{Identifier: "a@b.co", Method: "email"}))

	_, err := fake.VerifyOTP(ctx, "a@b.co", "999999x")
	require.ErrorIs(t, err, backend.ErrUnauthenticated)
}

func TestFakeExpireTokenRevokesAccess(t *testing.T) {
	t.Parallel()

	fake := backend.NewFake()
	fake.SeedProducts([]domain.Product{{ID: "p1", Name: "Lamp"}})
	ctx := context.Background()

	require.NoError(t, fake.RequestOTP(ctx, backend.OTPRequest{Identifier: "a@b.co", Method: "email"}))
	result, err := fake.VerifyOTP(ctx, "a@b.co", fake.OTPFor("a@b.co"))
	require.NoError(t, err)

	require.NoError(t, fake.AddCartItem(ctx, result.Token, "p1", 1))

	fake.ExpireToken(result.Token)
	err = fake.AddCartItem(ctx, result.Token, "p1", 1)
	require.ErrorIs(t, err, backend.ErrUnauthenticated)
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	seed := `products:
  - id: "1"
    name: Coffee Table
    price: "8999.00"
    stock: 12
    category: living
  - id: "2"
    name: Bookshelf
    price: "12499.00"
    original_price: "14999.00"
`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	products, err := backend.LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "Coffee Table", products[0].Name)
	require.Equal(t, "14999.00", products[1].OriginalPrice)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	t.Parallel()

	_, err := backend.LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCatalogRejectsEntriesWithoutID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("products:\n  - name: Orphan\n"), 0o600))

	_, err := backend.LoadCatalog(path)
	require.Error(t, err)
}
