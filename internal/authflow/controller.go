// Package authflow drives the two-step passwordless login: request a code
// for a phone number or email address, then verify it. Flow state persists
// in the visitor store so the verify step survives a page reload.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liminara-shop/storefront/internal/backend"
	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
	"github.com/liminara-shop/storefront/internal/redirect"
	"github.com/liminara-shop/storefront/internal/session"
)

const (
	storageKey = "otpflow"
	codeLength = 6
)

// Step identifies where the visitor is in the login flow.
type Step string

const (
	// StepRequest is the initial state: the visitor is entering an identifier.
	StepRequest Step = "request"
	// StepVerify means a code has been sent and is awaited.
	StepVerify Step = "verify"
)

// Method is the delivery channel for the one-time code.
const (
	MethodPhone = "phone"
	MethodEmail = "email"
)

var (
	// ErrIdentifierRequired indicates an empty identifier was submitted.
	ErrIdentifierRequired = errors.New("authflow: identifier is required")
	// ErrInvalidMethod indicates a delivery method other than phone or email.
	ErrInvalidMethod = errors.New("authflow: method must be phone or email")
	// ErrCodeIncomplete indicates fewer than six digits were entered.
	ErrCodeIncomplete = errors.New("authflow: code must be 6 digits")
	// ErrNotVerifying indicates a verify-step call while still on the request step.
	ErrNotVerifying = errors.New("authflow: no code has been requested")
	// ErrSuperseded indicates a newer submission finished first; the stale
	// result was discarded rather than overwriting newer state.
	ErrSuperseded = errors.New("authflow: submission superseded")

	errStoreRequired     = errors.New("authflow: store is required")
	errBackendRequired   = errors.New("authflow: backend service is required")
	errSessionsRequired  = errors.New("authflow: session manager is required")
	errRedirectsRequired = errors.New("authflow: redirect continuity is required")
)

// Result is returned by a successful verification: the logged-in user and
// where the interrupted journey resumes.
type Result struct {
	User       domain.User
	RedirectTo string
}

type flowState struct {
	Step       Step   `json:"step"`
	Method     string `json:"method,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Name       string `json:"name,omitempty"`
	Code       string `json:"code,omitempty"`
	// Attempt increments on every network submission; responses whose
	// attempt no longer matches the stored one are stale and discarded.
	Attempt uint64 `json:"attempt,omitempty"`
}

// Config wires the controller's dependencies for one visitor.
type Config struct {
	Store     kvstore.Store
	Backend   backend.Service
	Sessions  *session.Manager
	Redirects *redirect.Continuity
}

// Controller is the login-page state machine.
type Controller struct {
	store     kvstore.Store
	backend   backend.Service
	sessions  *session.Manager
	redirects *redirect.Continuity
}

// New constructs a Controller enforcing dependency validation.
func New(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, errStoreRequired
	}
	if cfg.Backend == nil {
		return nil, errBackendRequired
	}
	if cfg.Sessions == nil {
		return nil, errSessionsRequired
	}
	if cfg.Redirects == nil {
		return nil, errRedirectsRequired
	}
	return &Controller{
		store:     cfg.Store,
		backend:   cfg.Backend,
		sessions:  cfg.Sessions,
		redirects: cfg.Redirects,
	}, nil
}

// Step returns the current flow step.
func (c *Controller) Step() Step {
	state, err := c.load()
	if err != nil {
		return StepRequest
	}
	return state.Step
}

// Identifier returns the identifier a code was requested for.
func (c *Controller) Identifier() string {
	state, err := c.load()
	if err != nil {
		return ""
	}
	return state.Identifier
}

// Method returns the delivery method chosen on the request step.
func (c *Controller) Method() string {
	state, err := c.load()
	if err != nil {
		return ""
	}
	return state.Method
}

// Code returns the normalized code entered so far.
func (c *Controller) Code() string {
	state, err := c.load()
	if err != nil {
		return ""
	}
	return state.Code
}

// CanVerify reports whether six digits have been entered.
func (c *Controller) CanVerify() bool {
	return len(c.Code()) == codeLength
}

// SubmitIdentifier validates the identifier, asks the backend to send a
// code, and advances to the verify step. On failure the flow stays on the
// request step and the server's message is surfaced unchanged.
func (c *Controller) SubmitIdentifier(ctx context.Context, identifier, method, name string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ErrIdentifierRequired
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if method != MethodPhone && method != MethodEmail {
		return ErrInvalidMethod
	}

	state, err := c.load()
	if err != nil {
		return err
	}
	attempt := state.Attempt + 1
	state.Attempt = attempt
	if err := c.save(state); err != nil {
		return err
	}

	err = c.backend.RequestOTP(ctx, backend.OTPRequest{
		Identifier: identifier,
		Method:     method,
		Name:       strings.TrimSpace(name),
	})

	current, loadErr := c.load()
	if loadErr != nil {
		return loadErr
	}
	if current.Attempt != attempt {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("authflow: request code: %w", err)
	}

	current.Step = StepVerify
	current.Identifier = identifier
	current.Method = method
	current.Name = strings.TrimSpace(name)
	current.Code = ""
	return c.save(current)
}

// EnterCode records code input, stripping non-digit characters and capping
// at six digits. It returns the normalized value.
func (c *Controller) EnterCode(raw string) (string, error) {
	state, err := c.load()
	if err != nil {
		return "", err
	}
	state.Code = NormalizeCode(raw)
	if err := c.save(state); err != nil {
		return "", err
	}
	return state.Code, nil
}

// SubmitCode verifies the entered code. On success it establishes the
// session, clears the flow, and resolves the redirect-continuity target.
// On failure the flow stays on the verify step with the identifier intact.
func (c *Controller) SubmitCode(ctx context.Context, raw string) (Result, error) {
	state, err := c.load()
	if err != nil {
		return Result{}, err
	}
	if state.Step != StepVerify {
		return Result{}, ErrNotVerifying
	}

	code := state.Code
	if raw != "" {
		code = NormalizeCode(raw)
	}
	if len(code) != codeLength {
		return Result{}, ErrCodeIncomplete
	}

	attempt := state.Attempt + 1
	state.Attempt = attempt
	state.Code = code
	if err := c.save(state); err != nil {
		return Result{}, err
	}

	verified, err := c.backend.VerifyOTP(ctx, state.Identifier, code)

	current, loadErr := c.load()
	if loadErr != nil {
		return Result{}, loadErr
	}
	if current.Attempt != attempt {
		return Result{}, ErrSuperseded
	}
	if err != nil {
		return Result{}, fmt.Errorf("authflow: verify code: %w", err)
	}

	if err := c.sessions.Login(verified.User, verified.Token); err != nil {
		return Result{}, err
	}
	if err := c.store.Delete(storageKey); err != nil {
		return Result{}, err
	}

	target, err := c.redirects.Resume()
	if err != nil {
		return Result{}, err
	}
	return Result{User: verified.User, RedirectTo: target}, nil
}

// Resend re-invokes the request step for the stored identifier without
// changing state.
func (c *Controller) Resend(ctx context.Context) error {
	state, err := c.load()
	if err != nil {
		return err
	}
	if state.Step != StepVerify {
		return ErrNotVerifying
	}

	attempt := state.Attempt + 1
	state.Attempt = attempt
	if err := c.save(state); err != nil {
		return err
	}

	err = c.backend.RequestOTP(ctx, backend.OTPRequest{
		Identifier: state.Identifier,
		Method:     state.Method,
		Name:       state.Name,
	})

	current, loadErr := c.load()
	if loadErr != nil {
		return loadErr
	}
	if current.Attempt != attempt {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("authflow: resend code: %w", err)
	}
	return nil
}

// Restart returns to the request step so the visitor can change the
// identifier. The entered code is discarded.
func (c *Controller) Restart() error {
	state, err := c.load()
	if err != nil {
		return err
	}
	state.Step = StepRequest
	state.Code = ""
	return c.save(state)
}

// NormalizeCode strips non-digit characters and caps the result at six
// digits, mirroring what the code input field accepts.
func NormalizeCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == codeLength {
			break
		}
	}
	return b.String()
}

func (c *Controller) load() (flowState, error) {
	state := flowState{Step: StepRequest}
	if _, err := kvstore.GetJSON(c.store, storageKey, &state); err != nil {
		return flowState{}, err
	}
	if state.Step == "" {
		state.Step = StepRequest
	}
	return state, nil
}

func (c *Controller) save(state flowState) error {
	return kvstore.SetJSON(c.store, storageKey, state)
}
