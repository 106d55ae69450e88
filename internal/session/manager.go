// Package session tracks the signed-in user on the dashboard side and the
// single key the dashboard persists locally.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/anugulalokeshreddy-code/deepfake/internal/logging"
	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
	"github.com/anugulalokeshreddy-code/deepfake/internal/storage"
	"github.com/labstack/gommon/log"
)

// UserKey is the only locally persisted key. It is removed on logout.
const UserKey = "user"

// Manager holds the current user.
type Manager struct {
	mu     sync.RWMutex
	user   *models.User
	store  storage.Store
	logger *log.Logger
}

// NewManager creates a session manager persisting through store.
func NewManager(store storage.Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{store: store, logger: logger}
}

// Restore loads the persisted user, if any. The restored user is only a
// hint for display; the auth check against the backend decides.
func (m *Manager) Restore() (models.User, bool) {
	var u models.User
	if err := m.store.Get(UserKey, &u); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warnf("[Session] Failed to restore %s: %v", UserKey, err)
		}
		return models.User{}, false
	}

	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	return u, true
}

// SetUser records an authenticated user and persists it.
func (m *Manager) SetUser(u models.User) error {
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()

	if err := m.store.Put(UserKey, u); err != nil {
		return fmt.Errorf("persisting %s: %w", UserKey, err)
	}
	return nil
}

// User returns the current user.
func (m *Manager) User() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return models.User{}, false
	}
	return *m.user, true
}

// Authenticated reports whether a user is set.
func (m *Manager) Authenticated() bool {
	_, ok := m.User()
	return ok
}

// Clear forgets the user and removes the persisted key.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()

	if err := m.store.Delete(UserKey); err != nil {
		return fmt.Errorf("removing %s: %w", UserKey, err)
	}
	return nil
}

// Greeting is the header text for the current user.
func (m *Manager) Greeting() string {
	u, ok := m.User()
	if !ok {
		return ""
	}
	return fmt.Sprintf("Welcome, %s!", u.Username)
}

// Nav returns navigation visibility for the current auth state.
func (m *Manager) Nav() models.NavView {
	if m.Authenticated() {
		return models.NavView{Dashboard: true, Logout: true}
	}
	return models.NavView{Login: true, Register: true}
}

// Forget drops the in-memory user without touching the persisted key. Used
// when an auth check fails for a reason other than logout.
func (m *Manager) Forget() {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
}
