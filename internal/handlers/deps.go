// Package handlers exposes the storefront HTTP surface. Each handler group
// wires its routes onto a chi router and resolves per-visitor services from
// the request context.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/liminara-shop/storefront/internal/authflow"
	"github.com/liminara-shop/storefront/internal/backend"
	"github.com/liminara-shop/storefront/internal/cart"
	"github.com/liminara-shop/storefront/internal/middleware"
	"github.com/liminara-shop/storefront/internal/notify"
	"github.com/liminara-shop/storefront/internal/platform/httpx"
	"github.com/liminara-shop/storefront/internal/redirect"
	"github.com/liminara-shop/storefront/internal/session"
)

// Deps carries the process-wide dependencies shared by all handler groups.
// Per-visitor services are assembled on demand from the visitor store.
type Deps struct {
	Backend  backend.Service
	Bus      *notify.Bus
	Cooldown time.Duration
	Clock    func() time.Time
}

// visitorScope bundles the per-visitor services for one request.
type visitorScope struct {
	visitor   middleware.Visitor
	sessions  *session.Manager
	redirects *redirect.Continuity
	flow      *authflow.Controller
	carts     *cart.Reconciler
}

func (d Deps) scope(ctx context.Context) (*visitorScope, error) {
	visitor, err := middleware.VisitorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(visitor.Store)
	if err != nil {
		return nil, err
	}
	if d.Clock != nil {
		sessions = sessions.WithClock(d.Clock)
	}

	redirects, err := redirect.NewContinuity(visitor.Store)
	if err != nil {
		return nil, err
	}

	flow, err := authflow.New(authflow.Config{
		Store:     visitor.Store,
		Backend:   d.Backend,
		Sessions:  sessions,
		Redirects: redirects,
	})
	if err != nil {
		return nil, err
	}

	carts, err := cart.New(cart.Config{
		Sessions:  sessions,
		Store:     visitor.Store,
		Backend:   d.Backend,
		Bus:       d.Bus,
		VisitorID: visitor.ID,
		Cooldown:  d.Cooldown,
		Clock:     d.Clock,
	})
	if err != nil {
		return nil, err
	}

	return &visitorScope{
		visitor:   visitor,
		sessions:  sessions,
		redirects: redirects,
		flow:      flow,
		carts:     carts,
	}, nil
}

// writeScopeError reports a failure to assemble per-visitor services.
func writeScopeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, middleware.ErrNoVisitor) {
		httpx.WriteError(ctx, w, httpx.NewError("no_visitor", "visitor identity is missing", http.StatusInternalServerError))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("internal", "internal server error", http.StatusInternalServerError))
}

// writeServiceError maps backend and storage failures onto the canonical
// error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, backend.ErrUnauthenticated):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", backend.UserMessage(err), http.StatusUnauthorized))
	case errors.Is(err, backend.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", backend.UserMessage(err), http.StatusNotFound))
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		httpx.WriteError(ctx, w, httpx.NewError("backend_error", backend.UserMessage(err), status))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "internal server error", http.StatusInternalServerError))
	}
}

const maxBodySize = 16 * 1024

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(dst)
}
