package authflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liminara-shop/storefront/internal/authflow"
	"github.com/liminara-shop/storefront/internal/backend"
	"github.com/liminara-shop/storefront/internal/domain"
	"github.com/liminara-shop/storefront/internal/platform/kvstore"
	"github.com/liminara-shop/storefront/internal/redirect"
	"github.com/liminara-shop/storefront/internal/session"
)

type flowFixture struct {
	fake      *backend.Fake
	store     kvstore.Store
	sessions  *session.Manager
	redirects *redirect.Continuity
	flow      *authflow.Controller
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()

	fake := backend.NewFake()
	store := kvstore.NewMemoryStore()

	sessions, err := session.NewManager(store)
	require.NoError(t, err)
	redirects, err := redirect.NewContinuity(store)
	require.NoError(t, err)

	flow, err := authflow.New(authflow.Config{
		Store:     store,
		Backend:   fake,
		Sessions:  sessions,
		Redirects: redirects,
	})
	require.NoError(t, err)

	return &flowFixture{fake: fake, store: store, sessions: sessions, redirects: redirects, flow: flow}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"123456":      "123456",
		"12a3bc":      "123",
		" 1 2-3_4 ":   "1234",
		"1234567890":  "123456",
		"abcdef":      "",
		"":            "",
		"12 34 56 78": "123456",
	}
	for raw, want := range cases {
		require.Equal(t, want, authflow.NormalizeCode(raw), "input %q", raw)
	}
}

func TestSubmitIdentifierValidation(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	ctx := context.Background()

	err := f.flow.SubmitIdentifier(ctx, "  ", "phone", "")
	require.ErrorIs(t, err, authflow.ErrIdentifierRequired)
	require.Equal(t, authflow.StepRequest, f.flow.Step())

	err = f.flow.SubmitIdentifier(ctx, "9876543210", "carrier-pigeon", "")
	require.ErrorIs(t, err, authflow.ErrInvalidMethod)
	require.Equal(t, authflow.StepRequest, f.flow.Step())
}

func TestSubmitIdentifierAdvancesToVerify(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.SubmitIdentifier(ctx, " 9876543210 ", "PHONE", "Asha"))
	require.Equal(t, authflow.StepVerify, f.flow.Step())
	require.Equal(t, "9876543210", f.flow.Identifier())
	require.Equal(t, "phone", f.flow.Method())
}

func TestFlowStateSurvivesControllerRebuild(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	ctx := context.Background()
	require.NoError(t, f.flow.SubmitIdentifier(ctx, "asha@example.com", "email", ""))

	// A fresh controller over the same store resumes at the verify step,
	// the way a page reload does.
	rebuilt, err := authflow.New(authflow.Config{
		Store:     f.store,
		Backend:   f.fake,
		Sessions:  f.sessions,
		Redirects: f.redirects,
	})
	require.NoError(t, err)
	require.Equal(t, authflow.StepVerify, rebuilt.Step())
	require.Equal(t, "asha@example.com", rebuilt.Identifier())
}

func TestEnterCodeNormalizesAndGatesVerify(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	ctx := context.Background()
	require.NoError(t, f.flow.SubmitIdentifier(ctx, "9876543210", "phone", ""))

	code, err := f.flow.EnterCode("12a3bc")
	require.NoError(t, err)
	require.Equal(t, "123", code)
	require.False(t, f.flow.CanVerify())

	code, err = f.flow.EnterCode("99-88-77")
	require.NoError(t, err)
	require.Equal(t, "998877", code)
	require.True(t, f.flow.CanVerify())
}

func TestSubmitCodeRequiresVerifyStep(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	_, err := f.flow.SubmitCode(context.Background(), "123456")
	require.ErrorIs(t, err, authflow.ErrNotVerifying)
}

func TestSubmitCodeRejectsShortCode(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	ctx := context.Background()
	require.NoError(t, f.flow.SubmitIdentifier(ctx, "9876543210", "phone", ""))

	_, err := f.flow.SubmitCode(ctx, "12 34")
	require.ErrorIs(t, err, authflow.ErrCodeIncomplete)
}

func TestFailedVerifyStaysOnVerifyStep(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	ctx := context.Background()
	require.NoError(t, f.flow.SubmitIdentifier(ctx, "9876543210", "phone", ""))

	_, err := f.flow.SubmitCode(ctx, "000001")
	require.Error(t, err)
	require.ErrorIs(t, err, backend.ErrUnauthenticated)

	// Identifier and step are intact so the visitor can retry.
	require.Equal(t, authflow.StepVerify, f.flow.Step())
	require.Equal(t, "9876543210", f.flow.Identifier())
	require.False(t, f.sessions.IsAuthenticated())
}

func TestSuccessfulVerifyLogsInAndResumesJourney(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.redirects.Capture(domain.RedirectIntent{CheckoutProductID: "42"}))
	require.NoError(t, f.flow.SubmitIdentifier(ctx, "asha@example.com", "email", "Asha"))

	result, err := f.flow.SubmitCode(ctx, f.fake.OTPFor("asha@example.com"))
	require.NoError(t, err)
	require.Equal(t, "/product/42", result.RedirectTo)
	require.Equal(t, "asha@example.com", result.User.Email)
	require.Equal(t, "Asha", result.User.Name)

	require.True(t, f.sessions.IsAuthenticated())
	// The flow resets so a later visit starts from the request step.
	require.Equal(t, authflow.StepRequest, f.flow.Step())
}

func TestResendReinvokesRequestWithoutStateChange(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.flow.Resend(ctx), authflow.ErrNotVerifying)

	require.NoError(t, f.flow.SubmitIdentifier(ctx, "9876543210", "phone", ""))
	require.NoError(t, f.flow.Resend(ctx))
	require.Equal(t, authflow.StepVerify, f.flow.Step())
	require.Equal(t, "9876543210", f.flow.Identifier())
}

func TestRestartReturnsToRequestKeepingIdentifier(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.SubmitIdentifier(ctx, "9876543210", "phone", ""))
	_, err := f.flow.EnterCode("123456")
	require.NoError(t, err)

	require.NoError(t, f.flow.Restart())
	require.Equal(t, authflow.StepRequest, f.flow.Step())
	require.Empty(t, f.flow.Code())
	require.Equal(t, "9876543210", f.flow.Identifier())
}

// failAfterDelay wraps the fake so a slow first verify can be superseded by
// a second one.
type sequencedBackend struct {
	backend.Service
	onVerify func()
}

func (s *sequencedBackend) VerifyOTP(ctx context.Context, identifier, code string) (backend.VerifyResult, error) {
	if s.onVerify != nil {
		s.onVerify()
	}
	return s.Service.VerifyOTP(ctx, identifier, code)
}

func TestStaleSubmitDoesNotOverwriteNewerState(t *testing.T) {
	t.Parallel()

	fake := backend.NewFake()
	store := kvstore.NewMemoryStore()
	sessions, err := session.NewManager(store)
	require.NoError(t, err)
	redirects, err := redirect.NewContinuity(store)
	require.NoError(t, err)

	seq := &sequencedBackend{Service: fake}
	flow, err := authflow.New(authflow.Config{
		Store:     store,
		Backend:   seq,
		Sessions:  sessions,
		Redirects: redirects,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, flow.SubmitIdentifier(ctx, "9876543210", "phone", ""))

	// While the first verify is in flight, a second submission bumps the
	// attempt counter; the first response must then be discarded.
	first := true
	seq.onVerify = func() {
		if first {
			first = false
			inner, err := authflow.New(authflow.Config{
				Store:     store,
				Backend:   fake,
				Sessions:  sessions,
				Redirects: redirects,
			})
			require.NoError(t, err)
			_, innerErr := inner.SubmitCode(ctx, fake.OTPFor("9876543210"))
			require.NoError(t, innerErr)
		}
	}

	_, err = flow.SubmitCode(ctx, fake.OTPFor("9876543210"))
	require.ErrorIs(t, err, authflow.ErrSuperseded)

	// The newer submission's outcome stands: the visitor is logged in.
	require.True(t, sessions.IsAuthenticated())
}
