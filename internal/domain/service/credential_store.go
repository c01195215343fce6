// Package service defines the capability interfaces the session core depends
// on. Platform adapters (secure device storage, browser cookies, identity
// provider SDKs, navigation) implement these so the core stays reusable.
package service

import (
	"context"

	"portal/internal/domain/entity"
)

// CredentialStore persists the opaque credential pair in platform-secure
// storage. It is the single source of truth for the bearer credential.
//
// Implementations must degrade rather than crash: when the storage backend is
// unavailable, reads report the credential as absent and writes fail
// silently. The pair is written and cleared atomically, so logout never
// leaves a refresh credential behind without its bearer counterpart.
type CredentialStore interface {
	// Credentials returns the stored pair, or (nil, nil) when absent.
	Credentials(ctx context.Context) (*entity.Credentials, error)

	// Save persists the pair, replacing any previous one.
	Save(ctx context.Context, creds *entity.Credentials) error

	// Clear removes the pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
