package handler

import (
	"log/slog"
	"net/http"

	"portal/internal/delivery/http/response"
	"portal/internal/domain/entity"
	"portal/internal/infra/navigation"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SessionHandler exposes the session controller's state to the frontend.
type SessionHandler struct {
	session   usecase.SessionUsecase
	navigator *navigation.Recorder
	logger    *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler, injected by Fx.
func NewSessionHandler(
	session usecase.SessionUsecase,
	navigator *navigation.Recorder,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		session:   session,
		navigator: navigator,
		logger:    logger,
	}
}

// sessionView is the frontend-facing projection of the session snapshot.
type sessionView struct {
	State         string       `json:"state"`
	Loading       bool         `json:"loading"`
	Authenticated bool         `json:"authenticated"`
	NeedsProfile  bool         `json:"needsProfile"`
	User          *entity.User `json:"user,omitempty"`
	ForcedRoute   string       `json:"forcedRoute,omitempty"`
}

func snapshotView(snapshot entity.SessionSnapshot, forcedRoute string) sessionView {
	return sessionView{
		State:         snapshot.State.String(),
		Loading:       snapshot.IsLoading(),
		Authenticated: snapshot.IsAuthenticated(),
		NeedsProfile:  snapshot.NeedsProfile(),
		User:          snapshot.User,
		ForcedRoute:   forcedRoute,
	}
}

// Session returns the current session view. A pending forced navigation is
// handed over exactly once.
func (h *SessionHandler) Session(c echo.Context) error {
	forced := h.navigator.Last()
	if forced != "" {
		h.navigator.Reset()
	}

	return response.Success(c, http.StatusOK, snapshotView(h.session.Snapshot(), forced), "")
}

// Refresh revalidates the session by reloading the signed-in identity.
func (h *SessionHandler) Refresh(c echo.Context) error {
	if _, err := h.session.FetchUser(c.Request().Context()); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, snapshotView(h.session.Snapshot(), ""), "")
}
