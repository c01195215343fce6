// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"portal/internal/delivery/http/middleware"
	"portal/internal/delivery/http/router/handler"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler      *handler.AuthHandler
	SessionHandler   *handler.SessionHandler
	DashboardHandler *handler.DashboardHandler
	Guard            *middleware.GuardMiddleware
	RequestID        *middleware.RequestIDMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler      *handler.AuthHandler
	sessionHandler   *handler.SessionHandler
	dashboardHandler *handler.DashboardHandler
	guard            *middleware.GuardMiddleware
	requestID        *middleware.RequestIDMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:      params.AuthHandler,
		sessionHandler:   params.SessionHandler,
		dashboardHandler: params.DashboardHandler,
		guard:            params.Guard,
		requestID:        params.RequestID,
	}
}

// RegisterRoutes sets up all the routes of the portal surface.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.Use(r.requestID.Process)

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Session state, polled by the frontend. Never guarded: the guard itself
	// depends on this state being observable.
	api := e.Group("/api")
	{
		api.GET("/session", r.sessionHandler.Session)
		api.POST("/session/refresh", r.sessionHandler.Refresh)
	}

	// Auth routes
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", r.authHandler.SignIn)
		authGroup.POST("/register", r.authHandler.SignUp)
		authGroup.POST("/logout", r.authHandler.SignOut)
		authGroup.POST("/google/callback", r.authHandler.GoogleCallback)
		authGroup.POST("/forgot-password", r.authHandler.ForgotPassword)
		authGroup.POST("/verify-otp", r.authHandler.VerifyOTP)
		authGroup.POST("/reset-password", r.authHandler.ResetPassword)
		authGroup.POST("/resend-otp", r.authHandler.ResendOTP)
	}

	// Pages. Private routes sit behind the session guard; the sign-in page
	// bounces already-authenticated visitors back.
	e.GET(usecase.RouteDashboard, r.dashboardHandler.Dashboard, r.guard.RequireSession)
	e.GET(usecase.RouteDashboard+"/*", r.dashboardHandler.Dashboard, r.guard.RequireSession)
	e.GET(usecase.RouteSignIn, r.dashboardHandler.SignInPage, r.guard.RedirectIfAuthenticated)
}
