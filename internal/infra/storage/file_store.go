// Package storage provides credential store implementations over
// platform-secure storage.
package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"portal/config"
	"portal/internal/domain/entity"
	"portal/internal/domain/service"

	"github.com/pkg/errors"
	"gocloud.dev/secrets"
	"gocloud.dev/secrets/localsecrets"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for deriving the keeper key from the device secret.
const (
	keySalt     = "portal/credential-store"
	scryptN     = 1 << 15
	scryptR     = 8
	scryptP     = 1
	keeperKeyLn = 32
)

// fileStore persists the credential pair as a single encrypted file. One file
// holds both credentials, so the pair is always written and cleared together.
// Read failures of any kind degrade to "absent": the session core treats a
// broken store as a signed-out device, never as a crash.
type fileStore struct {
	path   string
	keeper *secrets.Keeper
	logger *slog.Logger
}

// NewFileStore is the constructor for fileStore. The at-rest key is derived
// from the configured device secret with scrypt.
func NewFileStore(cfg *config.Config, logger *slog.Logger) (service.CredentialStore, error) {
	if cfg.Storage == nil || cfg.Storage.Path == "" {
		return nil, errors.New("storage path must be configured")
	}
	if cfg.Storage.Secret == "" {
		return nil, errors.New("storage secret must be configured")
	}

	key, err := deriveKeeperKey(cfg.Storage.Secret)
	if err != nil {
		return nil, errors.Wrap(err, "derive credential store key")
	}

	return &fileStore{
		path:   cfg.Storage.Path,
		keeper: localsecrets.NewKeeper(key),
		logger: logger,
	}, nil
}

// Credentials returns the stored pair, or (nil, nil) when absent or unreadable.
func (s *fileStore) Credentials(ctx context.Context) (*entity.Credentials, error) {
	ciphertext, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Credential store unreadable, treating as absent", slog.Any("error", err))
		}

		return nil, nil
	}

	plaintext, err := s.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		s.logger.Warn("Credential store undecryptable, treating as absent", slog.Any("error", err))

		return nil, nil
	}

	var creds entity.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		s.logger.Warn("Credential store corrupt, treating as absent", slog.Any("error", err))

		return nil, nil
	}

	if creds.Empty() {
		return nil, nil
	}

	return &creds, nil
}

// Save encrypts and persists the pair atomically (write-then-rename).
func (s *fileStore) Save(ctx context.Context, creds *entity.Credentials) error {
	if creds.Empty() {
		return errors.New("refusing to store an empty credential pair")
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "encode credentials")
	}

	ciphertext, err := s.keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return errors.Wrap(err, "encrypt credentials")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create credential store directory")
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return errors.Wrap(err, "create temporary credential file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return errors.Wrap(err, "write credentials")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return errors.Wrap(err, "restrict credential file permissions")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return errors.Wrap(err, "close credential file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)

		return errors.Wrap(err, "replace credential file")
	}

	return nil
}

// Clear removes the pair. Clearing an absent store succeeds.
func (s *fileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove credential file")
	}

	return nil
}

func deriveKeeperKey(secret string) ([keeperKeyLn]byte, error) {
	var key [keeperKeyLn]byte

	raw, err := scrypt.Key([]byte(secret), []byte(keySalt), scryptN, scryptR, scryptP, keeperKeyLn)
	if err != nil {
		return key, errors.Wrap(err, "scrypt key derivation")
	}
	copy(key[:], raw)

	return key, nil
}
