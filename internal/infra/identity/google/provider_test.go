package google

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"portal/config"
	domainerrors "portal/internal/domain/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "client-id.apps.googleusercontent.com"

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	cfg := &config.Config{
		GoogleOAuth: &config.GoogleOAuthConfig{ClientID: testClientID},
	}

	provider, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return provider
}

func signToken(t *testing.T, claims idTokenClaims) string {
	t.Helper()

	// ParseUnverified never checks the signature, so any key works here.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)

	return token
}

func validClaims() idTokenClaims {
	return idTokenClaims{
		Email:         "partner@example.com",
		EmailVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Audience:  jwt.ClaimStrings{testClientID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestProvider_SetAssertion_AcceptsValidToken(t *testing.T) {
	provider := newTestProvider(t)
	token := signToken(t, validClaims())

	require.NoError(t, provider.SetAssertion(token))

	got, err := provider.Assertion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestProvider_SetAssertion_RejectsBadTokens(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*idTokenClaims)
	}{
		{
			name:   "wrong issuer",
			mutate: func(c *idTokenClaims) { c.Issuer = "https://evil.example.com" },
		},
		{
			name:   "wrong audience",
			mutate: func(c *idTokenClaims) { c.Audience = jwt.ClaimStrings{"other-client"} },
		},
		{
			name: "expired",
			mutate: func(c *idTokenClaims) {
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			},
		},
		{
			name:   "unverified email",
			mutate: func(c *idTokenClaims) { c.EmailVerified = false },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newTestProvider(t)
			claims := validClaims()
			tt.mutate(&claims)

			err := provider.SetAssertion(signToken(t, claims))
			assert.ErrorIs(t, err, domainerrors.ErrOAuthFailed)
		})
	}
}

func TestProvider_SetAssertion_RejectsMalformedToken(t *testing.T) {
	provider := newTestProvider(t)

	err := provider.SetAssertion("not-a-jwt")
	assert.ErrorIs(t, err, domainerrors.ErrOAuthFailed)
}

func TestProvider_Assertion_MissingWithoutSession(t *testing.T) {
	provider := newTestProvider(t)

	_, err := provider.Assertion(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrAssertionMissing)
}

func TestProvider_SignOut_DropsAssertion(t *testing.T) {
	provider := newTestProvider(t)
	require.NoError(t, provider.SetAssertion(signToken(t, validClaims())))

	require.NoError(t, provider.SignOut(context.Background()))

	_, err := provider.Assertion(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrAssertionMissing)
}
