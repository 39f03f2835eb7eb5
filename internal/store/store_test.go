package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
)

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Get(ctx, KeyStudents); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	if err := repo.Put(ctx, KeyStudents, []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.Put(ctx, KeyStudents, []byte(`[{"id":"2"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := repo.Get(ctx, KeyStudents)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte(`[{"id":"2"}]`)) {
		t.Fatalf("expected last write to win, got %s", got)
	}
	if err := repo.Delete(ctx, KeyStudents); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, KeyStudents); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	if _, err := repo.Get(ctx, KeyStudents); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseRepository(t, NewMemory())
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	buf := []byte("token")
	_ = m.Put(ctx, KeyToken, buf)
	buf[0] = 'X'
	got, _ := m.Get(ctx, KeyToken)
	if string(got) != "token" {
		t.Fatalf("expected stored copy, got %s", got)
	}
}

func TestFile(t *testing.T) {
	f, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exerciseRepository(t, f)
}

func TestFileRequiresDir(t *testing.T) {
	if _, err := NewFile(""); err == nil {
		t.Fatalf("expected empty dir to fail")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Options{Backend: "etcd"}); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}
	repo, err := Open(context.Background(), Options{})
	if err != nil {
		t.Fatalf("default backend: %v", err)
	}
	if _, ok := repo.(*Memory); !ok {
		t.Fatalf("expected memory default, got %T", repo)
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	r := NewRedis(addr)
	defer r.Close()
	if !r.Healthy(context.Background()) {
		t.Skip("redis not reachable")
	}
	exerciseRepository(t, r)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	p, err := NewPostgres(context.Background(), dsn)
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	defer p.Close()
	exerciseRepository(t, p)
}
