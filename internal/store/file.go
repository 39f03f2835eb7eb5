package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File keeps one file per key under a directory, the closest thing to an
// on-device key-value store for a command-line client.
type File struct {
	dir string
}

// NewFile creates the directory if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("store dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key Key) string {
	return filepath.Join(f.dir, strings.ReplaceAll(string(key), ":", "_")+".json")
}

func (f *File) Get(ctx context.Context, key Key) ([]byte, error) {
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

// Put writes through a temp file and rename so readers never see a torn value.
func (f *File) Put(ctx context.Context, key Key, value []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path(key))
}

func (f *File) Delete(ctx context.Context, key Key) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *File) Close() error { return nil }
