package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"portal/internal/domain/entity"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
)

// nextParam carries the originally requested path through the sign-in
// redirect, so a completed sign-in can return the user where they started.
const nextParam = "next"

// GuardDecision is the route guard's verdict for a request.
type GuardDecision int

const (
	// DecisionWait means authentication state is still unknown. The request
	// must neither render nor redirect.
	DecisionWait GuardDecision = iota
	// DecisionRedirect means the visitor is signed out and must be sent to
	// the sign-in page, carrying the requested path.
	DecisionRedirect
	// DecisionAllow admits the request.
	DecisionAllow
)

// GuardResult is the outcome of a guard evaluation.
type GuardResult struct {
	Decision GuardDecision
	Redirect string
}

// Decide evaluates a protected route against the session snapshot. It is a
// pure function of its inputs: same snapshot and target, same verdict.
//
// An unresolved snapshot yields Wait, never Redirect: redirecting while
// validation is in flight would bounce a returning user with a perfectly
// valid stored session through the sign-in page.
func Decide(snapshot entity.SessionSnapshot, target *url.URL) GuardResult {
	if snapshot.IsLoading() {
		return GuardResult{Decision: DecisionWait}
	}

	if !snapshot.IsAuthenticated() {
		redirect := usecase.RouteSignIn
		if requested := target.RequestURI(); requested != "" && requested != "/" {
			redirect += "?" + nextParam + "=" + url.QueryEscape(requested)
		}

		return GuardResult{Decision: DecisionRedirect, Redirect: redirect}
	}

	return GuardResult{Decision: DecisionAllow}
}

// SafeReturnPath validates a sign-in return target. Only same-origin
// absolute paths are allowed, anything else falls back to the dashboard.
func SafeReturnPath(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return usecase.RouteDashboard
	}

	return next
}

// GuardMiddleware gates routes on the session controller's snapshot.
type GuardMiddleware struct {
	session usecase.SessionUsecase
	logger  *slog.Logger
}

// NewGuardMiddleware creates a new route guard middleware.
func NewGuardMiddleware(session usecase.SessionUsecase, logger *slog.Logger) *GuardMiddleware {
	return &GuardMiddleware{
		session: session,
		logger:  logger,
	}
}

// RequireSession protects private routes. While validation is pending the
// client is told to retry shortly; signed-out visitors are redirected to
// sign-in with the requested path preserved.
func (m *GuardMiddleware) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		result := Decide(m.session.Snapshot(), c.Request().URL)

		switch result.Decision {
		case DecisionWait:
			c.Response().Header().Set("Retry-After", "1")

			return echo.NewHTTPError(http.StatusServiceUnavailable, "Session validation in progress")
		case DecisionRedirect:
			m.logger.Debug("Redirecting signed-out visitor",
				slog.String("path", c.Request().URL.Path))

			return c.Redirect(http.StatusFound, result.Redirect)
		default:
			return next(c)
		}
	}
}

// RedirectIfAuthenticated keeps signed-in users off guest-only pages such as
// sign-in, sending them back to the requested path or the dashboard.
func (m *GuardMiddleware) RedirectIfAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.session.Snapshot().IsAuthenticated() {
			return c.Redirect(http.StatusFound, SafeReturnPath(c.QueryParam(nextParam)))
		}

		return next(c)
	}
}
