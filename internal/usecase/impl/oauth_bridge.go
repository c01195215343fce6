package impl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	deliverycontext "portal/internal/delivery/context"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/service"
	"portal/internal/usecase"
)

// federatedRole is the account role requested from federated login. The
// backend rejects the exchange when the Google account belongs to a
// different role.
const federatedRole = "partner"

// oauthBridge implements the OAuthBridge interface. Each identity assertion
// is submitted to the backend at most once, enforced by fingerprint, because
// the backend treats a replayed assertion as a conflicting sign-in. A failed
// exchange signs the provider session out so the next attempt starts from a
// fresh assertion.
type oauthBridge struct {
	provider service.IdentityProvider
	gateway  service.AuthGateway
	logger   *slog.Logger

	mu        sync.Mutex
	submitted map[string]struct{}
}

// NewOAuthBridge is the constructor for oauthBridge.
func NewOAuthBridge(
	provider service.IdentityProvider,
	gateway service.AuthGateway,
	logger *slog.Logger,
) usecase.OAuthBridge {
	return &oauthBridge{
		provider:  provider,
		gateway:   gateway,
		logger:    logger,
		submitted: make(map[string]struct{}),
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (b *oauthBridge) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, b.logger)
}

// Exchange submits the provider's current assertion to federated login.
func (b *oauthBridge) Exchange(ctx context.Context) (*service.FederatedLoginResult, error) {
	assertion, err := b.provider.Assertion(ctx)
	if err != nil {
		return nil, err
	}

	fingerprint := assertionFingerprint(assertion)

	b.mu.Lock()
	if _, done := b.submitted[fingerprint]; done {
		b.mu.Unlock()
		b.log(ctx).Warn("Identity assertion already submitted, rejecting replay")

		return nil, domainerrors.ErrOAuthFailed.WithMessage("This sign-in attempt was already used, please sign in again")
	}
	// Marked before the call: even a failed exchange consumes the assertion.
	b.submitted[fingerprint] = struct{}{}
	b.mu.Unlock()

	result, err := b.gateway.FederatedLogin(ctx, assertion, b.provider.Provider(), federatedRole)
	if err != nil {
		b.log(ctx).Warn("Federated login exchange failed, signing provider out", slog.Any("error", err))
		if signOutErr := b.provider.SignOut(ctx); signOutErr != nil {
			b.log(ctx).Warn("Identity provider sign-out failed", slog.Any("error", signOutErr))
		}

		return nil, err
	}

	return result, nil
}

func assertionFingerprint(assertion string) string {
	sum := sha256.Sum256([]byte(assertion))

	return hex.EncodeToString(sum[:])
}
