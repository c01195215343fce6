// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"portal/internal/domain/entity"
	"portal/internal/domain/service"
)

// Routes the session core forces navigation to. The web surface mounts its
// pages on the same paths.
const (
	RouteDashboard = "/dashboard"
	RouteSignIn    = "/signin"
)

// LoginInput carries the sign-in form fields.
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput is the result of a completed sign-in.
type LoginOutput struct {
	User *entity.User
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// OAuthSessionOutput is the result of a completed federated sign-in.
// NeedsPhone signals that the profile-completion prompt should be shown.
type OAuthSessionOutput struct {
	User       *entity.User
	NeedsPhone bool
}

// SessionUsecase is the session controller: the single owner of
// authentication state. All transitions go through it, and concurrent
// operations resolve deterministically with sign-out taking precedence over
// any in-flight sign-in or user fetch.
type SessionUsecase interface {
	// Bootstrap runs the startup validation sequence. It executes at most
	// once per process; repeated calls are no-ops.
	Bootstrap(ctx context.Context)

	// Login establishes a session from email and password.
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// Logout ends the session locally no matter what the backend says.
	Logout(ctx context.Context) error

	// FetchUser revalidates the session by reloading the current identity.
	// Stale responses never overwrite newer ones.
	FetchUser(ctx context.Context) (*entity.User, error)

	// SetupOAuthSession completes a federated sign-in from the identity
	// provider's current assertion.
	SetupOAuthSession(ctx context.Context) (*OAuthSessionOutput, error)

	// Register creates an account. It does not establish a session.
	Register(ctx context.Context, input *RegisterInput) error

	// Invalidate tears the session down after the transport reported it
	// unrecoverable. Idempotent.
	Invalidate(ctx context.Context)

	// Snapshot returns the current session view for guards and screens.
	Snapshot() entity.SessionSnapshot
}

// OAuthBridge exchanges the identity provider's assertion for a first-party
// session. Each assertion is submitted to the backend at most once; a failed
// exchange signs the provider session out.
type OAuthBridge interface {
	Exchange(ctx context.Context) (*service.FederatedLoginResult, error)
}
