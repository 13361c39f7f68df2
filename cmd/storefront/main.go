package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/liminara-shop/storefront/internal/backend"
	"github.com/liminara-shop/storefront/internal/handlers"
	"github.com/liminara-shop/storefront/internal/middleware"
	"github.com/liminara-shop/storefront/internal/notify"
	"github.com/liminara-shop/storefront/internal/platform/config"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
	"github.com/liminara-shop/storefront/internal/platform/observability"
)

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("storefront")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	svc, err := buildBackend(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise backend", zap.Error(err))
	}

	store := kvstore.NewMemoryStore()

	visitors, err := middleware.NewVisitorManager(middleware.VisitorConfig{
		CookieName:   cfg.Visitor.CookieName,
		HashKey:      []byte(cfg.Visitor.HashKey),
		BlockKey:     blockKey(cfg.Visitor.BlockKey),
		CookieSecure: cfg.Visitor.CookieSecure,
		Backing:      store,
	})
	if err != nil {
		logger.Fatal("failed to initialise visitor manager", zap.Error(err))
	}
	if cfg.Visitor.HashKey == "" {
		logger.Warn("visitor cookie hash key not set; using an ephemeral key")
	}

	bus := notify.NewBus()
	eventLogger := logger.Named("events")
	sub := bus.Subscribe(func(evt notify.Event) {
		eventLogger.Info("storefront event",
			zap.String("kind", string(evt.Kind)),
			zap.String("visitor_id", evt.VisitorID),
			zap.String("product_id", evt.ProductID),
			zap.String("stored", evt.Stored),
			zap.Int("count", evt.Count),
		)
	})
	defer sub.Close()

	router := handlers.NewRouter(handlers.RouterConfig{
		Deps: handlers.Deps{
			Backend:  svc,
			Bus:      bus,
			Cooldown: cfg.Cart.Cooldown,
		},
		Visitor: visitors.Handler,
		Middlewares: []func(http.Handler) http.Handler{
			observability.RequestLogger(logger.Named("http")),
		},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("liminara storefront listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("storefront stopped")
}

// buildBackend returns the remote API client when a base URL is configured,
// else the in-memory fake seeded from the catalog file.
func buildBackend(cfg config.Config, logger *zap.Logger) (backend.Service, error) {
	if cfg.Backend.BaseURL != "" {
		client, err := backend.NewClient(cfg.Backend.BaseURL, &http.Client{Timeout: cfg.Backend.Timeout})
		if err != nil {
			return nil, err
		}
		logger.Info("using remote commerce backend", zap.String("base_url", cfg.Backend.BaseURL))
		return client, nil
	}

	products, err := backend.LoadCatalog(cfg.Catalog.SeedFile)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("catalog seed file not found; using built-in catalog", zap.String("path", cfg.Catalog.SeedFile))
		products = backend.DefaultCatalog()
	} else if err != nil {
		return nil, err
	}

	fake := backend.NewFake()
	fake.SeedProducts(products)
	logger.Info("using in-memory fake backend", zap.Int("products", len(products)))
	return fake, nil
}

func blockKey(key string) []byte {
	if key == "" {
		return nil
	}
	return []byte(key)
}
