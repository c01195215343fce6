// Package google adapts a Google Sign-In session to the identity provider
// contract consumed by the OAuth bridge.
package google

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"portal/config"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/service"
	"portal/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

const ProviderName = "google"

// Accepted issuers for Google ID tokens.
var allowedIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// idTokenClaims are the claims inspected before the assertion is handed to
// the backend. The backend performs the cryptographic verification; this
// layer only rejects assertions that could never pass it.
type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Provider holds the ID token produced by the Google Sign-In flow and serves
// it as the current identity assertion. SignOut drops the token so a failed
// exchange never replays the same provider session.
type Provider struct {
	clientID string
	logger   *slog.Logger

	mu        sync.Mutex
	assertion string
}

// New is the constructor for Provider.
func New(cfg *config.Config, logger *slog.Logger) (*Provider, error) {
	if cfg.GoogleOAuth == nil || cfg.GoogleOAuth.ClientID == "" {
		return nil, errors.New("google oauth client id must be configured")
	}

	return &Provider{
		clientID: cfg.GoogleOAuth.ClientID,
		logger:   logger,
	}, nil
}

var _ service.IdentityProvider = (*Provider)(nil)

// SetAssertion validates and stores the ID token returned by the sign-in
// flow, replacing any previous one.
func (p *Provider) SetAssertion(idToken string) error {
	claims, err := p.parseClaims(idToken)
	if err != nil {
		p.logger.Warn("Rejected identity assertion", slog.Any("error", err))

		return domainerrors.ErrOAuthFailed
	}

	p.logger.Debug("Identity assertion accepted", slog.String("email", claims.Email))

	p.mu.Lock()
	p.assertion = idToken
	p.mu.Unlock()

	return nil
}

// Assertion returns the current ID token, or ErrAssertionMissing when no
// provider session exists.
func (p *Provider) Assertion(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.assertion == "" {
		return "", domainerrors.ErrAssertionMissing
	}

	return p.assertion, nil
}

// SignOut ends the provider session by discarding the held assertion.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.assertion = ""
	p.mu.Unlock()

	return nil
}

func (p *Provider) Provider() string {
	return ProviderName
}

func (p *Provider) parseClaims(idToken string) (*idTokenClaims, error) {
	claims := new(idTokenClaims)

	// Signature verification belongs to the backend, which holds Google's
	// JWKS. Parse without verifying and check the static claims only.
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, errors.Wrap(err, "parse id token")
	}

	if !allowedIssuers[claims.Issuer] {
		return nil, errors.Errorf("unexpected issuer %q", claims.Issuer)
	}

	audienceMatched := false
	for _, aud := range claims.Audience {
		if aud == p.clientID {
			audienceMatched = true

			break
		}
	}
	if !audienceMatched {
		return nil, errors.New("token audience does not match client id")
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("token is expired")
	}

	if !claims.EmailVerified {
		return nil, errors.New("email is not verified")
	}

	return claims, nil
}
