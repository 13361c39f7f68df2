package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/liminara-shop/storefront/internal/platform/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(config.WithoutSystemEnv(), config.WithEnvFile(""))
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 8*time.Second, cfg.Backend.Timeout)
	require.Empty(t, cfg.Backend.BaseURL)
	require.Equal(t, "liminara_visitor", cfg.Visitor.CookieName)
	require.Equal(t, time.Second, cfg.Cart.Cooldown)
	require.Equal(t, "catalog.yaml", cfg.Catalog.SeedFile)
}

func TestLoadEnvMapOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(
		config.WithoutSystemEnv(),
		config.WithEnvFile(""),
		config.WithEnvMap(map[string]string{
			"STOREFRONT_PORT":                  "9090",
			"STOREFRONT_BACKEND_URL":           "https://api.liminara.example",
			"STOREFRONT_CART_COOLDOWN":         "2500ms",
			"STOREFRONT_VISITOR_COOKIE_SECURE": "true",
		}),
	)
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "https://api.liminara.example", cfg.Backend.BaseURL)
	require.Equal(t, 2500*time.Millisecond, cfg.Cart.Cooldown)
	require.True(t, cfg.Visitor.CookieSecure)
}

func TestLoadPortFallback(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(
		config.WithoutSystemEnv(),
		config.WithEnvFile(""),
		config.WithEnvMap(map[string]string{"PORT": "7070"}),
	)
	require.NoError(t, err)
	require.Equal(t, "7070", cfg.Server.Port)
}

func TestLoadDotEnvFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	content := "# local overrides\nexport STOREFRONT_PORT=6060\nSTOREFRONT_VISITOR_COOKIE=\"liminara_dev\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(config.WithoutSystemEnv(), config.WithEnvFile(path))
	require.NoError(t, err)
	require.Equal(t, "6060", cfg.Server.Port)
	require.Equal(t, "liminara_dev", cfg.Visitor.CookieName)
}

func TestValidationErrorListsFields(t *testing.T) {
	t.Parallel()

	_, err := config.Load(
		config.WithoutSystemEnv(),
		config.WithEnvFile(""),
		config.WithEnvMap(map[string]string{"STOREFRONT_CART_COOLDOWN": "-1s"}),
	)
	require.Error(t, err)

	var validation *config.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields(), "Cart.Cooldown")
}
