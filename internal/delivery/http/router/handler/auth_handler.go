// Package handler contains the HTTP handlers for the portal surface.
package handler

import (
	"log/slog"
	"net/http"

	"portal/internal/delivery/http/response"
	"portal/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AssertionSetter receives the identity provider's ID token from the sign-in
// callback.
type AssertionSetter interface {
	SetAssertion(idToken string) error
}

// AuthHandler holds dependencies for authentication-related handlers.
type AuthHandler struct {
	session  usecase.SessionUsecase
	recovery usecase.RecoveryUsecase
	provider AssertionSetter
	logger   *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(
	session usecase.SessionUsecase,
	recovery usecase.RecoveryUsecase,
	provider AssertionSetter,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		session:  session,
		recovery: recovery,
		provider: provider,
		logger:   logger,
	}
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignIn handles the sign-in request.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var input signInRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-in input")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	output, err := h.session.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output.User, "Signed in")
}

type signUpRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	PhoneNo  string `json:"phoneNo" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignUp handles the registration request. Registration does not sign the
// account in; the client signs in afterwards.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var input signUpRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	if err := h.session.Register(c.Request().Context(), &usecase.RegisterInput{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.PhoneNo,
		Password: input.Password,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, nil, "Account registered")
}

// SignOut handles the sign-out request. It always succeeds locally.
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.session.Logout(c.Request().Context()); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Signed out")
}

type googleCallbackRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// GoogleCallback completes the Google sign-in flow: it hands the ID token to
// the identity provider and asks the session controller to set up the
// federated session.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	var input googleCallbackRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid callback input")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	if err := h.provider.SetAssertion(input.IDToken); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.session.SetupOAuthSession(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"user":       output.User,
		"needsPhone": output.NeedsPhone,
	}, "Signed in")
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword starts the OTP recovery flow.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var input emailRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid recovery input")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	if err := h.recovery.ForgotPassword(c.Request().Context(), input.Email); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Recovery code sent")
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6"`
}

// VerifyOTP checks the recovery code.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var input verifyOTPRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid verification input")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	if err := h.recovery.VerifyOTP(c.Request().Context(), input.Email, input.OTP); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Code verified")
}

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6"`
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword completes the recovery flow with a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var input resetPasswordRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset input")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	if err := h.recovery.ResetPassword(c.Request().Context(), &usecase.ResetPasswordInput{
		Email:    input.Email,
		Code:     input.OTP,
		Password: input.Password,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password reset")
}

// ResendOTP sends a fresh recovery code.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var input emailRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid recovery input")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	if err := h.recovery.ResendOTP(c.Request().Context(), input.Email); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Recovery code sent")
}
