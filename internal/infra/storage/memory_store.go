package storage

import (
	"context"
	"sync"

	"portal/internal/domain/entity"
	"portal/internal/domain/service"
)

// memoryStore keeps the credential pair in process memory. Used by the
// cookie-session generation (where the backend cookie is the real credential)
// and by tests.
type memoryStore struct {
	mu    sync.Mutex
	creds *entity.Credentials
}

// NewMemoryStore is the constructor for memoryStore.
func NewMemoryStore() service.CredentialStore {
	return &memoryStore{}
}

func (s *memoryStore) Credentials(_ context.Context) (*entity.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds.Empty() {
		return nil, nil
	}

	copied := *s.creds

	return &copied, nil
}

func (s *memoryStore) Save(_ context.Context, creds *entity.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if creds.Empty() {
		s.creds = nil

		return nil
	}

	copied := *creds
	s.creds = &copied

	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = nil

	return nil
}
