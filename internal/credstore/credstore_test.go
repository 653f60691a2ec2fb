package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/washportal/internal/credstore/config"
	"github.com/iurnickita/washportal/internal/model"
)

// checkStore прогоняет общий сценарий для любой реализации
func checkStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, model.KeyAccessToken)
	require.ErrorIs(t, err, ErrNotFound)

	creds, err := LoadCredentials(ctx, store)
	require.NoError(t, err)
	require.Equal(t, model.Credentials{}, creds)

	// вход
	err = SaveCredentials(ctx, store, model.Credentials{Access: "access-1", Refresh: "refresh-1"})
	require.NoError(t, err)

	// обновление access
	err = store.Set(ctx, model.KeyAccessToken, "access-2")
	require.NoError(t, err)

	creds, err = LoadCredentials(ctx, store)
	require.NoError(t, err)
	require.Equal(t, model.Credentials{Access: "access-2", Refresh: "refresh-1"}, creds)

	// выход
	require.NoError(t, Clear(ctx, store))
	_, err = store.Get(ctx, model.KeyRefreshToken)
	require.ErrorIs(t, err, ErrNotFound)

	// повторное удаление - не ошибка
	require.NoError(t, store.Remove(ctx, model.KeyRefreshToken))
}

func TestMemoryStore(t *testing.T) {
	checkStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	checkStore(t, NewFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	err := SaveCredentials(ctx, NewFile(path), model.Credentials{Access: "a", Refresh: "r"})
	require.NoError(t, err)

	creds, err := LoadCredentials(ctx, NewFile(path))
	require.NoError(t, err)
	require.Equal(t, model.Credentials{Access: "a", Refresh: "r"}, creds)
}

func TestFileStoreCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFile(path).Get(context.Background(), model.KeyAccessToken)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestNew(t *testing.T) {
	store, err := New(config.Config{Kind: config.KindMemory})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, store)

	store, err = New(config.Config{Kind: config.KindFile, File: filepath.Join(t.TempDir(), "c.json")})
	require.NoError(t, err)
	require.IsType(t, &File{}, store)

	_, err = New(config.Config{Kind: "redis"})
	require.ErrorIs(t, err, ErrUnknownKind)
}
