package service

import (
	"context"

	"portal/internal/domain/entity"
)

// SignInInput carries the credentials submitted on the sign-in form.
type SignInInput struct {
	Email    string
	Password string
}

// SignInResult is the backend's answer to a successful sign-in. Credentials
// is nil in cookie-session mode, where the backend sets an HTTP-only cookie
// instead of returning a bearer credential.
type SignInResult struct {
	User        *entity.User
	Credentials *entity.Credentials
}

// SignUpInput carries the fields of the registration form.
type SignUpInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// FederatedLoginResult is the payload returned by the federated-login
// exchange. NeedsPhone signals the profile-completion prompt. Credentials is
// nil in cookie-session mode.
type FederatedLoginResult struct {
	NeedsPhone  bool
	Partner     *entity.User
	Credentials *entity.Credentials
}

// AuthGateway is the backend's authentication surface, consumed as an opaque
// HTTP service. Implementations normalize transport and backend failures into
// typed domain errors; they never expose raw HTTP details to the use cases.
type AuthGateway interface {
	SignIn(ctx context.Context, input *SignInInput) (*SignInResult, error)
	SignUp(ctx context.Context, input *SignUpInput) error
	SignOut(ctx context.Context) error

	// CurrentUser returns the identity bound to the currently valid
	// credential (bearer header or cookie).
	CurrentUser(ctx context.Context) (*entity.User, error)

	// FederatedLogin exchanges an external identity assertion for a
	// first-party session.
	FederatedLogin(ctx context.Context, assertion, provider, role string) (*FederatedLoginResult, error)

	// OTP-based recovery flow.
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, password string) error
	ResendOTP(ctx context.Context, email string) error
}
