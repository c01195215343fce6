package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"portal/internal/domain/entity"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSession implements SessionUsecase with a fixed snapshot. Only Snapshot
// is exercised by the guard.
type stubSession struct {
	snapshot entity.SessionSnapshot
}

func (s *stubSession) Bootstrap(context.Context) {}
func (s *stubSession) Login(context.Context, *usecase.LoginInput) (*usecase.LoginOutput, error) {
	return nil, nil
}
func (s *stubSession) Logout(context.Context) error { return nil }
func (s *stubSession) FetchUser(context.Context) (*entity.User, error) {
	return nil, nil
}
func (s *stubSession) SetupOAuthSession(context.Context) (*usecase.OAuthSessionOutput, error) {
	return nil, nil
}
func (s *stubSession) Register(context.Context, *usecase.RegisterInput) error { return nil }
func (s *stubSession) Invalidate(context.Context)                             {}
func (s *stubSession) Snapshot() entity.SessionSnapshot                       { return s.snapshot }

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

func authenticatedSnapshot() entity.SessionSnapshot {
	return entity.SessionSnapshot{
		State: entity.StateAuthenticated,
		User:  &entity.User{ID: "42", Name: "Acme Labs"},
	}
}

func TestDecide_WaitsWhileValidating(t *testing.T) {
	for _, state := range []entity.SessionState{entity.StateUninitialized, entity.StateValidating} {
		t.Run(state.String(), func(t *testing.T) {
			result := Decide(entity.SessionSnapshot{State: state}, mustParse(t, "/dashboard"))
			assert.Equal(t, DecisionWait, result.Decision)
		})
	}
}

func TestDecide_RedirectsSignedOutWithReturnPath(t *testing.T) {
	result := Decide(
		entity.SessionSnapshot{State: entity.StateUnauthenticated},
		mustParse(t, "/dashboard/reports?month=7"),
	)

	assert.Equal(t, DecisionRedirect, result.Decision)
	assert.Equal(t, "/signin?next="+url.QueryEscape("/dashboard/reports?month=7"), result.Redirect)
}

func TestDecide_AllowsAuthenticated(t *testing.T) {
	result := Decide(authenticatedSnapshot(), mustParse(t, "/dashboard"))
	assert.Equal(t, DecisionAllow, result.Decision)
}

func TestDecide_IsPure(t *testing.T) {
	snapshot := entity.SessionSnapshot{State: entity.StateUnauthenticated}
	target := mustParse(t, "/dashboard")

	first := Decide(snapshot, target)
	second := Decide(snapshot, target)
	assert.Equal(t, first, second)
}

func TestSafeReturnPath(t *testing.T) {
	tests := []struct {
		name string
		next string
		want string
	}{
		{name: "empty", next: "", want: "/dashboard"},
		{name: "relative path", next: "/dashboard/reports", want: "/dashboard/reports"},
		{name: "absolute url", next: "https://evil.example.com", want: "/dashboard"},
		{name: "protocol relative", next: "//evil.example.com", want: "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeReturnPath(tt.next))
		})
	}
}

func newGuardContext(t *testing.T, target string, snapshot entity.SessionSnapshot) (echo.Context, *httptest.ResponseRecorder, *GuardMiddleware) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	guard := NewGuardMiddleware(
		&stubSession{snapshot: snapshot},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return c, rec, guard
}

func TestRequireSession_WaitAnswersRetryAfter(t *testing.T) {
	c, rec, guard := newGuardContext(t, "/dashboard", entity.SessionSnapshot{State: entity.StateValidating})

	err := guard.RequireSession(func(echo.Context) error { return nil })(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRequireSession_RedirectsSignedOut(t *testing.T) {
	c, rec, guard := newGuardContext(t, "/dashboard?tab=reports", entity.SessionSnapshot{State: entity.StateUnauthenticated})

	handlerRan := false
	err := guard.RequireSession(func(echo.Context) error {
		handlerRan = true

		return nil
	})(c)
	require.NoError(t, err)

	assert.False(t, handlerRan)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/signin?next="+url.QueryEscape("/dashboard?tab=reports"), rec.Header().Get("Location"))
}

func TestRequireSession_AdmitsAuthenticated(t *testing.T) {
	c, _, guard := newGuardContext(t, "/dashboard", authenticatedSnapshot())

	handlerRan := false
	err := guard.RequireSession(func(echo.Context) error {
		handlerRan = true

		return nil
	})(c)
	require.NoError(t, err)
	assert.True(t, handlerRan)
}

func TestRedirectIfAuthenticated_SendsSignedInUserBack(t *testing.T) {
	c, rec, guard := newGuardContext(t, "/signin?next=%2Fdashboard%2Freports", authenticatedSnapshot())

	err := guard.RedirectIfAuthenticated(func(echo.Context) error { return nil })(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/reports", rec.Header().Get("Location"))
}

func TestRedirectIfAuthenticated_LetsGuestsThrough(t *testing.T) {
	c, _, guard := newGuardContext(t, "/signin", entity.SessionSnapshot{State: entity.StateUnauthenticated})

	handlerRan := false
	err := guard.RedirectIfAuthenticated(func(echo.Context) error {
		handlerRan = true

		return nil
	})(c)
	require.NoError(t, err)
	assert.True(t, handlerRan)
}
