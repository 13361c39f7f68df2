package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/liminara-shop/storefront/internal/platform/httpx"
)

const defaultRequestTimeout = 60 * time.Second

// RouterConfig assembles the full route tree.
type RouterConfig struct {
	Deps Deps
	// Visitor is applied to every route that needs per-visitor storage.
	Visitor func(http.Handler) http.Handler
	// Extra middleware runs after the built-in stack.
	Middlewares []func(http.Handler) http.Handler
}

// NewRouter constructs the chi router with shared middleware and mounts all
// handler groups.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(defaultRequestTimeout))
	for _, mw := range cfg.Middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	health := NewHealthHandlers()
	r.Get("/healthz", health.Healthz)

	products := NewProductHandlers(cfg.Deps)
	r.Route("/products", products.Routes)

	auth := NewAuthHandlers(cfg.Deps)
	carts := NewCartHandlers(cfg.Deps)

	r.Group(func(g chi.Router) {
		if cfg.Visitor != nil {
			g.Use(cfg.Visitor)
		}
		g.Route("/auth", auth.Routes)
		carts.Routes(g)
	})

	return r
}
