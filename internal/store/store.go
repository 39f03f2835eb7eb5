// Package store is the persisted key-value store behind the client cache
// and session. Values are opaque bytes; callers own the encoding.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Key names a persisted value.
type Key string

const (
	KeySession  Key = "classroll:session"
	KeyToken    Key = "classroll:token"
	KeyStudents Key = "classroll:students"
	KeyHistory  Key = "classroll:history"
)

// ErrNotFound is returned by Get when a key holds no value.
var ErrNotFound = errors.New("store: key not found")

// Repository is the abstraction over different backends.
type Repository interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Put(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, key Key) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string // memory, file, redis, postgres
	Dir         string
	RedisAddr   string
	DatabaseURL string
}

// Open builds the configured backend.
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(opts.Dir)
	case "redis":
		r := NewRedis(opts.RedisAddr)
		if !r.Healthy(ctx) {
			_ = r.Close()
			return nil, fmt.Errorf("redis at %s not reachable", opts.RedisAddr)
		}
		return r, nil
	case "postgres":
		return NewPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
