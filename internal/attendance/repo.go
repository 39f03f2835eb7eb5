package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"classroll/internal/metrics"
	"classroll/internal/model"
	"classroll/internal/store"
)

// Repository persists the cached student list and attendance history.
// Each list is stored whole under one key and rewritten on every change.
type Repository struct {
	store store.Repository

	mu    sync.Mutex
	locks map[store.Key]*sync.Mutex
}

// NewRepository creates a repo.
func NewRepository(s store.Repository) *Repository {
	return &Repository{store: s, locks: make(map[store.Key]*sync.Mutex)}
}

// lock serializes read-modify-write cycles on one key.
func (r *Repository) lock(key store.Key) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Students returns the cached student list, most recent first.
func (r *Repository) Students(ctx context.Context) ([]model.StudentRecord, error) {
	return readList[model.StudentRecord](ctx, r.store, store.KeyStudents)
}

// History returns the cached attendance records, most recent first.
func (r *Repository) History(ctx context.Context) ([]model.AttendanceRecord, error) {
	return readList[model.AttendanceRecord](ctx, r.store, store.KeyHistory)
}

// PrependStudent adds a student to the front of the cached list.
func (r *Repository) PrependStudent(ctx context.Context, rec model.StudentRecord) error {
	defer r.lock(store.KeyStudents)()

	list, err := r.Students(ctx)
	if err != nil {
		return err
	}
	list = append([]model.StudentRecord{rec}, list...)
	return writeList(ctx, r.store, store.KeyStudents, list)
}

// PrependAttendance adds a record to the history and keeps the limit most
// recent entries.
func (r *Repository) PrependAttendance(ctx context.Context, rec model.AttendanceRecord, limit int) error {
	defer r.lock(store.KeyHistory)()

	list, err := r.History(ctx)
	if err != nil {
		return err
	}
	list = append([]model.AttendanceRecord{rec}, list...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return writeList(ctx, r.store, store.KeyHistory, list)
}

// Clear drops both cached lists.
func (r *Repository) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []store.Key{store.KeyStudents, store.KeyHistory} {
		unlock := r.lock(key)
		if err := r.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
		unlock()
	}
	return errors.Join(errs...)
}

func readList[T any](ctx context.Context, s store.Repository, key store.Key) ([]T, error) {
	b, err := s.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	var list []T
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return list, nil
}

func writeList[T any](ctx context.Context, s store.Repository, key store.Key, list []T) error {
	b, err := json.Marshal(list)
	if err != nil {
		metrics.CacheWrites.WithLabelValues(string(key), "error").Inc()
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Put(ctx, key, b); err != nil {
		metrics.CacheWrites.WithLabelValues(string(key), "error").Inc()
		return fmt.Errorf("write %s: %w", key, err)
	}
	metrics.CacheWrites.WithLabelValues(string(key), "ok").Inc()
	return nil
}
