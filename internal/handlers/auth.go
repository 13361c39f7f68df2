package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liminara-shop/storefront/internal/authflow"
	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/notify"
	"github.com/liminara-shop/storefront/internal/platform/httpx"
)

// AuthHandlers exposes the passwordless login flow and session endpoints.
type AuthHandlers struct {
	deps Deps
}

// NewAuthHandlers constructs handlers for the /auth endpoints.
func NewAuthHandlers(deps Deps) *AuthHandlers {
	return &AuthHandlers{deps: deps}
}

// Routes wires the /auth endpoints onto the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/state", h.getState)
	r.Post("/request-otp", h.requestOTP)
	r.Post("/enter-code", h.enterCode)
	r.Post("/verify-otp", h.verifyOTP)
	r.Post("/resend-otp", h.resendOTP)
	r.Post("/restart", h.restart)
	r.Post("/logout", h.logout)
	r.Post("/intent", h.captureIntent)
}

type requestOTPRequest struct {
	Identifier string `json:"identifier"`
	Method     string `json:"method"`
	Name       string `json:"name,omitempty"`
}

type verifyOTPRequest struct {
	Code string `json:"code"`
}

type intentRequest struct {
	ReturnURL         string `json:"return_url,omitempty"`
	CheckoutProductID string `json:"checkout_product_id,omitempty"`
	PendingAction     string `json:"pending_action,omitempty"`
}

type stateResponse struct {
	Step          string       `json:"step"`
	Identifier    string       `json:"identifier,omitempty"`
	Method        string       `json:"method,omitempty"`
	CanVerify     bool         `json:"can_verify"`
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
}

type verifyOTPResponse struct {
	User       domain.User `json:"user"`
	RedirectTo string      `json:"redirect_to"`
}

func (h *AuthHandlers) getState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, stateResponse{
		Step:          string(scope.flow.Step()),
		Identifier:    scope.flow.Identifier(),
		Method:        scope.flow.Method(),
		CanVerify:     scope.flow.CanVerify(),
		Authenticated: scope.sessions.IsAuthenticated(),
		User:          scope.sessions.User(),
	})
}

func (h *AuthHandlers) requestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	var req requestOTPRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	if err := scope.flow.SubmitIdentifier(ctx, req.Identifier, req.Method, req.Name); err != nil {
		h.writeFlowError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, stateResponse{
		Step:       string(scope.flow.Step()),
		Identifier: scope.flow.Identifier(),
		Method:     scope.flow.Method(),
	})
}

// enterCode records partial code input, returning the normalized value the
// way the code field displays it.
func (h *AuthHandlers) enterCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	var req verifyOTPRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	code, err := scope.flow.EnterCode(req.Code)
	if err != nil {
		h.writeFlowError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"code":       code,
		"can_verify": scope.flow.CanVerify(),
	})
}

func (h *AuthHandlers) verifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	var req verifyOTPRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	result, err := scope.flow.SubmitCode(ctx, req.Code)
	if err != nil {
		h.writeFlowError(ctx, w, err)
		return
	}

	h.publishSessionChange(scope)
	httpx.WriteJSON(w, http.StatusOK, verifyOTPResponse{
		User:       result.User,
		RedirectTo: result.RedirectTo,
	})
}

func (h *AuthHandlers) resendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	if err := scope.flow.Resend(ctx); err != nil {
		h.writeFlowError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *AuthHandlers) restart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	if err := scope.flow.Restart(); err != nil {
		h.writeFlowError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stateResponse{
		Step:       string(scope.flow.Step()),
		Identifier: scope.flow.Identifier(),
		Method:     scope.flow.Method(),
	})
}

func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	if err := scope.sessions.Logout(); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	h.publishSessionChange(scope)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// captureIntent records where the visitor should land after login. Called
// when an action is interrupted by an authentication requirement.
func (h *AuthHandlers) captureIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := h.deps.scope(ctx)
	if err != nil {
		writeScopeError(ctx, w, err)
		return
	}

	var req intentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	intent := domain.RedirectIntent{
		ReturnURL:         req.ReturnURL,
		CheckoutProductID: req.CheckoutProductID,
		PendingAction:     req.PendingAction,
	}
	if err := scope.redirects.Capture(intent); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "captured"})
}

func (h *AuthHandlers) writeFlowError(ctx context.Context, w http.ResponseWriter, err error) {
	if code, message, status := flowError(err); status != 0 {
		httpx.WriteError(ctx, w, httpx.NewError(code, message, status))
		return
	}
	writeServiceError(ctx, w, err)
}

func (h *AuthHandlers) publishSessionChange(scope *visitorScope) {
	if h.deps.Bus == nil {
		return
	}
	stored := "local"
	if scope.sessions.IsAuthenticated() {
		stored = "remote"
	}
	h.deps.Bus.Publish(notify.Event{
		Kind:      notify.KindSessionChanged,
		VisitorID: scope.visitor.ID,
		Stored:    stored,
	})
}

func flowError(err error) (code, message string, status int) {
	switch {
	case errors.Is(err, authflow.ErrIdentifierRequired):
		return "invalid_request", "Please enter your phone number or email", http.StatusBadRequest
	case errors.Is(err, authflow.ErrInvalidMethod):
		return "invalid_request", "Delivery method must be phone or email", http.StatusBadRequest
	case errors.Is(err, authflow.ErrCodeIncomplete):
		return "invalid_request", "Please enter the 6-digit code", http.StatusBadRequest
	case errors.Is(err, authflow.ErrNotVerifying):
		return "invalid_state", "Request a code before verifying", http.StatusConflict
	case errors.Is(err, authflow.ErrSuperseded):
		return "superseded", "A newer request took over", http.StatusConflict
	default:
		return "", "", 0
	}
}
