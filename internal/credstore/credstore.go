package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/iurnickita/washportal/internal/credstore/config"
	"github.com/iurnickita/washportal/internal/model"
)

// Store хранит пары ключ-значение токенов. Единственный писатель - клиент.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

var (
	ErrNotFound    = errors.New("not found")
	ErrUnknownKind = errors.New("unknown credential store")
)

func New(cfg config.Config) (Store, error) {
	switch cfg.Kind {
	case config.KindMemory:
		return NewMemory(), nil
	case config.KindFile, "":
		return NewFile(cfg.File), nil
	case config.KindPostgres:
		return NewPostgres(cfg.DBDsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// LoadCredentials читает пару токенов; отсутствующий токен - пустая строка
func LoadCredentials(ctx context.Context, store Store) (model.Credentials, error) {
	var creds model.Credentials
	var err error

	creds.Access, err = getOptional(ctx, store, model.KeyAccessToken)
	if err != nil {
		return model.Credentials{}, err
	}
	creds.Refresh, err = getOptional(ctx, store, model.KeyRefreshToken)
	if err != nil {
		return model.Credentials{}, err
	}
	return creds, nil
}

func SaveCredentials(ctx context.Context, store Store, creds model.Credentials) error {
	if err := store.Set(ctx, model.KeyAccessToken, creds.Access); err != nil {
		return err
	}
	return store.Set(ctx, model.KeyRefreshToken, creds.Refresh)
}

// Clear удаляет оба токена (выход из аккаунта)
func Clear(ctx context.Context, store Store) error {
	if err := store.Remove(ctx, model.KeyAccessToken); err != nil {
		return err
	}
	return store.Remove(ctx, model.KeyRefreshToken)
}

func getOptional(ctx context.Context, store Store, key string) (string, error) {
	value, err := store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}
