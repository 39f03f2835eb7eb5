package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"classroll/internal/apperr"
	"classroll/internal/model"
	"classroll/internal/store"
)

// Authenticator performs the remote credential exchange.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (model.Session, error)
}

// Manager owns the persisted session and token.
type Manager struct {
	store  store.Repository
	remote Authenticator
}

// NewManager creates a session manager.
func NewManager(s store.Repository, remote Authenticator) *Manager {
	return &Manager{store: s, remote: remote}
}

// Login authenticates and persists the session. Nothing is stored on failure.
func (m *Manager) Login(ctx context.Context, username, password string) (model.Session, error) {
	sess, err := m.remote.Login(ctx, username, password)
	if err != nil {
		return model.Session{}, err
	}

	// The token lives under its own key; the user blob carries no copy.
	user := sess
	user.AccessToken = ""
	blob, err := json.Marshal(user)
	if err != nil {
		return model.Session{}, apperr.Storage("Could not save session", err)
	}
	if err := m.store.Put(ctx, store.KeyToken, []byte(sess.AccessToken)); err != nil {
		return model.Session{}, apperr.Storage("Could not save session", err)
	}
	if err := m.store.Put(ctx, store.KeySession, blob); err != nil {
		_ = m.store.Delete(ctx, store.KeyToken)
		return model.Session{}, apperr.Storage("Could not save session", err)
	}
	return sess, nil
}

// Logout clears session and token. It is safe to call without a session.
func (m *Manager) Logout(ctx context.Context) {
	for _, key := range []store.Key{store.KeySession, store.KeyToken} {
		if err := m.store.Delete(ctx, key); err != nil {
			log.Printf("auth: clear %s: %v", key, err)
		}
	}
}

// IsAuthenticated reports whether both user info and token are stored.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.CurrentSession(ctx)
	return ok
}

// CurrentSession returns the stored session when user info and token are
// both present.
func (m *Manager) CurrentSession(ctx context.Context) (model.Session, bool) {
	token := m.token(ctx)
	if token == "" {
		return model.Session{}, false
	}
	blob, err := m.store.Get(ctx, store.KeySession)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("auth: read session: %v", err)
		}
		return model.Session{}, false
	}
	var sess model.Session
	if err := json.Unmarshal(blob, &sess); err != nil {
		log.Printf("auth: decode session: %v", err)
		return model.Session{}, false
	}
	sess.AccessToken = token
	return sess, true
}

// AuthHeader returns the bearer header, or an empty header when no token
// is stored.
func (m *Manager) AuthHeader(ctx context.Context) http.Header {
	h := http.Header{}
	if token := m.token(ctx); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func (m *Manager) token(ctx context.Context) string {
	b, err := m.store.Get(ctx, store.KeyToken)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("auth: read token: %v", err)
		}
		return ""
	}
	return string(b)
}
