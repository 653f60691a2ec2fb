package credstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	database *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	// Таблица токенов: одна строка на ключ
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("goose up: %w", err)
	}

	return &Postgres{database: db}, nil
}

func (store *Postgres) Close() error {
	return store.database.Close()
}

func (store *Postgres) Get(ctx context.Context, key string) (string, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT value FROM credentials"+
			" WHERE name = $1",
		key)
	var value string
	err := row.Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (store *Postgres) Set(ctx context.Context, key string, value string) error {
	now := time.Now().UTC()

	// Новая запись
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO credentials (name, value, updated_at)"+
			" VALUES ($1, $2, $3)",
		key,
		value,
		now)
	if err == nil {
		return nil
	}

	// Проверка: уже существует - обновляем
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	_, err = store.database.ExecContext(ctx,
		"UPDATE credentials"+
			" SET value = $1, updated_at = $2"+
			" WHERE name = $3",
		value,
		now,
		key)
	return err
}

func (store *Postgres) Remove(ctx context.Context, key string) error {
	_, err := store.database.ExecContext(ctx,
		"DELETE FROM credentials"+
			" WHERE name = $1",
		key)
	return err
}
