package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"portal/config"
	"portal/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*fileStore, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "credentials.enc")

	cfg := &config.Config{
		Storage: &config.StorageConfig{
			Path:   path,
			Secret: "test-device-secret",
		},
	}

	store, err := NewFileStore(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)

	fs, ok := store.(*fileStore)
	require.True(t, ok)

	return fs, path
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	creds := &entity.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, store.Save(ctx, creds))

	got, err := store.Credentials(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_EncryptedAtRest(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	creds := &entity.Credentials{AccessToken: "secret-access", RefreshToken: "secret-refresh"}
	require.NoError(t, store.Save(ctx, creds))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-access")
	assert.NotContains(t, string(raw), "secret-refresh")
}

func TestFileStore_AbsentReadsAsNil(t *testing.T) {
	store, _ := newTestFileStore(t)

	got, err := store.Credentials(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_CorruptFileDegradesToAbsent(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("not ciphertext"), 0o600))

	got, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_SaveOverwritesPair(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &entity.Credentials{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, store.Save(ctx, &entity.Credentials{AccessToken: "a2", RefreshToken: "r2"}))

	got, err := store.Credentials(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a2", got.AccessToken)
	assert.Equal(t, "r2", got.RefreshToken)
}

func TestFileStore_SaveRejectsEmptyPair(t *testing.T) {
	store, _ := newTestFileStore(t)

	err := store.Save(context.Background(), &entity.Credentials{})
	assert.Error(t, err)
}

func TestFileStore_ClearRemovesPair(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &entity.Credentials{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, store.Clear(ctx))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	got, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_ClearIsIdempotent(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	got, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(ctx, &entity.Credentials{AccessToken: "a", RefreshToken: "r"}))

	got, err = store.Credentials(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.AccessToken)

	require.NoError(t, store.Clear(ctx))

	got, err = store.Credentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
