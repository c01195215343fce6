package handler

import (
	"net/http"

	"portal/internal/delivery/http/response"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the protected landing page of the portal.
type DashboardHandler struct {
	session usecase.SessionUsecase
}

// NewDashboardHandler is the constructor for DashboardHandler, injected by Fx.
func NewDashboardHandler(session usecase.SessionUsecase) *DashboardHandler {
	return &DashboardHandler{session: session}
}

// Dashboard renders the signed-in landing view. The route guard admits only
// authenticated sessions, so the snapshot always carries a user here.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	snapshot := h.session.Snapshot()

	return response.Success(c, http.StatusOK, map[string]any{
		"user":         snapshot.User,
		"needsProfile": snapshot.NeedsProfile(),
	}, "")
}

// SignInPage renders the guest sign-in view. Signed-in visitors never reach
// it; the guard redirects them to the dashboard first.
func (h *DashboardHandler) SignInPage(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]any{
		"next": c.QueryParam("next"),
	}, "Sign in to continue")
}

// HealthCheck reports process liveness.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "")
}
