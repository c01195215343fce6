package service

import "context"

// IdentityProvider exposes the third-party identity provider's session to the
// session core. The assertion is owned by the provider SDK: this system reads
// it, sends it to federated login once, and never persists it.
type IdentityProvider interface {
	// Assertion returns the current external identity assertion, or "" when
	// the provider has no authenticated session.
	Assertion(ctx context.Context) (string, error)

	// SignOut terminates the provider session. Called when the federated
	// exchange fails, to avoid a half-logged-in state.
	SignOut(ctx context.Context) error

	// Provider returns the provider identifier sent to federated login,
	// e.g. "google".
	Provider() string
}
