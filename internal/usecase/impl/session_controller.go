// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"
	"sync"

	"portal/config"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/service"
	"portal/internal/errors"
	"portal/internal/usecase"
)

// sessionController implements the SessionUsecase interface. It is the only
// writer of session state.
//
// Concurrency is resolved with two counters, both guarded by mu:
//
//   - epoch increments on every sign-out. An operation captures the epoch
//     before its backend call and discards its result if the epoch moved, so
//     sign-out always wins over an in-flight sign-in or fetch.
//   - fetchSeq/applied order user fetches. A fetch only applies its result if
//     no later fetch (or sign-in) has applied first, so a slow stale response
//     can never overwrite a newer identity.
type sessionController struct {
	gateway   service.AuthGateway
	store     service.CredentialStore
	provider  service.IdentityProvider
	bridge    usecase.OAuthBridge
	navigator service.Navigator
	logger    *slog.Logger

	// probeWithoutCredentials makes bootstrap call the backend even when the
	// store is empty. Used in cookie-session mode, where the credential lives
	// in the cookie jar and the store is always empty.
	probeWithoutCredentials bool

	mu       sync.Mutex
	state    entity.SessionState
	user     *entity.User
	booted   bool
	epoch    uint64
	fetchSeq uint64
	applied  uint64
}

// NewSessionController is the constructor for sessionController.
func NewSessionController(
	gateway service.AuthGateway,
	store service.CredentialStore,
	provider service.IdentityProvider,
	bridge usecase.OAuthBridge,
	navigator service.Navigator,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionController{
		gateway:                 gateway,
		store:                   store,
		provider:                provider,
		bridge:                  bridge,
		navigator:               navigator,
		logger:                  logger,
		probeWithoutCredentials: cfg.API.CookieSession,
		state:                   entity.StateUninitialized,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (c *sessionController) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, c.logger)
}

// Bootstrap runs the startup validation sequence at most once.
func (c *sessionController) Bootstrap(ctx context.Context) {
	c.mu.Lock()
	if c.booted {
		c.mu.Unlock()

		return
	}
	c.booted = true
	c.state = entity.StateValidating
	e := c.epoch
	c.mu.Unlock()

	c.log(ctx).Info("Validating stored session")

	// A provider assertion still present at startup means a federated sign-in
	// was interrupted before the exchange. Complete it before consulting the
	// stored credentials.
	if user, ok := c.exchangeStartupAssertion(ctx); ok {
		c.resolve(e, entity.StateAuthenticated, user)

		return
	}

	creds, err := c.store.Credentials(ctx)
	if err != nil {
		c.log(ctx).Warn("Credential store read failed during startup", slog.Any("error", err))
		creds = nil
	}

	if creds == nil && !c.probeWithoutCredentials {
		c.log(ctx).Info("No stored credentials, starting signed out")
		c.resolve(e, entity.StateUnauthenticated, nil)

		return
	}

	user, err := c.gateway.CurrentUser(ctx)
	switch {
	case err == nil:
		c.log(ctx).Info("Stored session is valid", slog.String("user_id", user.ID))
		c.resolve(e, entity.StateAuthenticated, user)
	case isAuthFailure(err):
		c.log(ctx).Info("Stored session rejected, clearing credentials")
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.log(ctx).Warn("Clearing rejected credentials failed", slog.Any("error", clearErr))
		}
		c.resolve(e, entity.StateUnauthenticated, nil)
	default:
		// Transport failure: gate as signed out but keep the stored pair so
		// the next validation can succeed without a fresh sign-in.
		c.log(ctx).Warn("Session validation unreachable, starting signed out", slog.Any("error", err))
		c.resolve(e, entity.StateUnauthenticated, nil)
	}
}

// exchangeStartupAssertion completes an interrupted federated sign-in when
// the identity provider still holds an assertion at startup. A failed
// exchange falls back to stored-credential validation.
func (c *sessionController) exchangeStartupAssertion(ctx context.Context) (*entity.User, bool) {
	assertion, err := c.provider.Assertion(ctx)
	if err != nil || assertion == "" {
		return nil, false
	}

	c.log(ctx).Info("Provider assertion found at startup, completing federated sign-in")

	result, err := c.bridge.Exchange(ctx)
	if err != nil {
		c.log(ctx).Warn("Startup federated sign-in failed, validating stored credentials instead", slog.Any("error", err))

		return nil, false
	}

	if result.Credentials != nil {
		if err := c.store.Save(ctx, result.Credentials); err != nil {
			c.log(ctx).Warn("Persisting credentials failed, session will not survive restart", slog.Any("error", err))
		}
	}

	return result.Partner, true
}

// resolve applies the bootstrap outcome unless a sign-out happened meanwhile.
func (c *sessionController) resolve(epoch uint64, state entity.SessionState, user *entity.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return
	}

	c.state = state
	c.user = user
}

// Login establishes a session from email and password.
func (c *sessionController) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	c.mu.Lock()
	e := c.epoch
	c.mu.Unlock()

	result, err := c.gateway.SignIn(ctx, &service.SignInInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		c.log(ctx).Warn("Sign-in failed", slog.Any("error", err))

		return nil, err
	}

	if result.Credentials != nil {
		if err := c.store.Save(ctx, result.Credentials); err != nil {
			c.log(ctx).Warn("Persisting credentials failed, session will not survive restart", slog.Any("error", err))
		}
	}

	c.mu.Lock()
	if c.epoch != e {
		c.mu.Unlock()
		// A sign-out won the race. Drop the result and the credentials it
		// just persisted.
		if err := c.store.Clear(ctx); err != nil {
			c.log(ctx).Warn("Clearing superseded credentials failed", slog.Any("error", err))
		}

		return nil, domainerrors.ErrNotAuthenticated
	}
	c.state = entity.StateAuthenticated
	c.user = result.User
	c.applied = c.fetchSeq
	c.mu.Unlock()

	c.navigator.Navigate(ctx, usecase.RouteDashboard)
	c.log(ctx).Info("Signed in", slog.String("user_id", result.User.ID))

	return &usecase.LoginOutput{User: result.User}, nil
}

// Logout ends the session locally no matter what the backend says.
func (c *sessionController) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.epoch++
	c.state = entity.StateUnauthenticated
	c.user = nil
	c.applied = c.fetchSeq
	c.mu.Unlock()

	// Backend sign-out needs the bearer credential, so it runs before the
	// store is cleared. Its failure never keeps the session alive.
	if err := c.gateway.SignOut(ctx); err != nil {
		c.log(ctx).Warn("Backend sign-out failed, ending session locally", slog.Any("error", err))
	}
	if err := c.provider.SignOut(ctx); err != nil {
		c.log(ctx).Warn("Identity provider sign-out failed", slog.Any("error", err))
	}
	if err := c.store.Clear(ctx); err != nil {
		c.log(ctx).Warn("Clearing credentials failed", slog.Any("error", err))
	}

	c.navigator.Navigate(ctx, usecase.RouteSignIn)
	c.log(ctx).Info("Signed out")

	return nil
}

// FetchUser revalidates the session by reloading the current identity.
func (c *sessionController) FetchUser(ctx context.Context) (*entity.User, error) {
	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	e := c.epoch
	c.mu.Unlock()

	user, err := c.gateway.CurrentUser(ctx)

	c.mu.Lock()

	if c.epoch != e {
		// A sign-out happened while the fetch was in flight.
		c.mu.Unlock()

		return nil, domainerrors.ErrNotAuthenticated
	}

	if err != nil {
		if isAuthFailure(err) {
			c.applied = seq
			c.state = entity.StateUnauthenticated
			c.user = nil
			c.mu.Unlock()

			if clearErr := c.store.Clear(ctx); clearErr != nil {
				c.log(ctx).Warn("Clearing rejected credentials failed", slog.Any("error", clearErr))
			}

			return nil, err
		}
		c.mu.Unlock()

		// Transport failure: the session outcome is unknown, so the state
		// stays as it is.
		return nil, err
	}

	if seq <= c.applied {
		// A newer fetch or sign-in already applied. Hand the caller the
		// result without letting it overwrite session state.
		c.mu.Unlock()

		return user, nil
	}

	c.applied = seq
	c.state = entity.StateAuthenticated
	c.user = user
	c.mu.Unlock()

	return user, nil
}

// SetupOAuthSession completes a federated sign-in from the identity
// provider's current assertion.
func (c *sessionController) SetupOAuthSession(ctx context.Context) (*usecase.OAuthSessionOutput, error) {
	c.mu.Lock()
	e := c.epoch
	c.mu.Unlock()

	result, err := c.bridge.Exchange(ctx)
	if err != nil {
		c.log(ctx).Warn("Federated sign-in failed", slog.Any("error", err))

		return nil, err
	}

	if result.Credentials != nil {
		if err := c.store.Save(ctx, result.Credentials); err != nil {
			c.log(ctx).Warn("Persisting credentials failed, session will not survive restart", slog.Any("error", err))
		}
	}

	c.mu.Lock()
	if c.epoch != e {
		c.mu.Unlock()
		if err := c.store.Clear(ctx); err != nil {
			c.log(ctx).Warn("Clearing superseded credentials failed", slog.Any("error", err))
		}

		return nil, domainerrors.ErrNotAuthenticated
	}
	c.state = entity.StateAuthenticated
	c.user = result.Partner
	c.applied = c.fetchSeq
	c.mu.Unlock()

	c.navigator.Navigate(ctx, usecase.RouteDashboard)
	c.log(ctx).Info("Federated sign-in completed",
		slog.String("user_id", result.Partner.ID),
		slog.Bool("needs_phone", result.NeedsPhone))

	return &usecase.OAuthSessionOutput{
		User:       result.Partner,
		NeedsPhone: result.NeedsPhone,
	}, nil
}

// Register creates an account without establishing a session.
func (c *sessionController) Register(ctx context.Context, input *usecase.RegisterInput) error {
	if err := c.gateway.SignUp(ctx, &service.SignUpInput{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Password: input.Password,
	}); err != nil {
		c.log(ctx).Warn("Registration failed", slog.Any("error", err))

		return err
	}

	c.log(ctx).Info("Account registered", slog.String("email", input.Email))

	return nil
}

// Invalidate tears the session down after the transport reported it
// unrecoverable. Safe to call repeatedly.
func (c *sessionController) Invalidate(ctx context.Context) {
	c.mu.Lock()
	if c.state == entity.StateUnauthenticated {
		c.mu.Unlock()

		return
	}
	c.epoch++
	c.state = entity.StateUnauthenticated
	c.user = nil
	c.applied = c.fetchSeq
	c.mu.Unlock()

	// The transport already cleared the store; clearing again is harmless
	// and covers callers that invalidate directly.
	if err := c.store.Clear(ctx); err != nil {
		c.log(ctx).Warn("Clearing credentials failed", slog.Any("error", err))
	}

	c.navigator.Navigate(ctx, usecase.RouteSignIn)
	c.log(ctx).Info("Session invalidated")
}

// Snapshot returns the current session view for guards and screens.
func (c *sessionController) Snapshot() entity.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return entity.SessionSnapshot{State: c.state, User: c.user}
}

// isAuthFailure reports whether the backend rejected the session itself, as
// opposed to being unreachable or failing on the request.
func isAuthFailure(err error) bool {
	return errors.Is(err, domainerrors.ErrSessionExpired) ||
		errors.Is(err, domainerrors.ErrNotAuthenticated) ||
		errors.Is(err, domainerrors.ErrRefreshFailed)
}
