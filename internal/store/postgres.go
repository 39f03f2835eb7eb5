package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres keeps values in a single kv table, for teachers sharing a
// workstation profile across machines.
type Postgres struct {
	Client *sql.DB
}

// NewPostgres creates a Postgres connection with sane defaults and makes
// sure the table exists.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS classroll_kv (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{Client: db}, nil
}

func (p *Postgres) Get(ctx context.Context, key Key) ([]byte, error) {
	var value []byte
	err := p.Client.QueryRowContext(ctx, `SELECT value FROM classroll_kv WHERE key = $1`, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return value, err
}

func (p *Postgres) Put(ctx context.Context, key Key, value []byte) error {
	_, err := p.Client.ExecContext(ctx, `
		INSERT INTO classroll_kv (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, string(key), value)
	return err
}

func (p *Postgres) Delete(ctx context.Context, key Key) error {
	_, err := p.Client.ExecContext(ctx, `DELETE FROM classroll_kv WHERE key = $1`, string(key))
	return err
}

// Close closes the underlying connection.
func (p *Postgres) Close() error {
	if p == nil || p.Client == nil {
		return nil
	}
	return p.Client.Close()
}
