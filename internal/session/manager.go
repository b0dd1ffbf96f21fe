package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/waabox/apideck/internal/domain"
)

// ErrNoSession is returned by Inspect when no access token is stored.
var ErrNoSession = errors.New("no active session")

// Manager reads and writes the session token pair held in a Store.
type Manager struct {
	store Store
	mu    sync.Mutex
}

// NewManager creates a Manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// AccessToken returns the stored access token, or "" when absent or unreadable.
func (m *Manager) AccessToken() string {
	token, _ := m.store.Get(KeyAccessToken)
	return token
}

// RefreshToken returns the stored refresh token, or "" when absent or unreadable.
func (m *Manager) RefreshToken() string {
	token, _ := m.store.Get(KeyRefreshToken)
	return token
}

// Save persists both tokens.
func (m *Manager) Save(pair domain.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Set(KeyAccessToken, pair.AccessToken); err != nil {
		return fmt.Errorf("saving access token: %w", err)
	}
	if err := m.store.Set(KeyRefreshToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}
	return nil
}

// Clear removes both tokens. Both removals are attempted even if the first fails.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	accessErr := m.store.Remove(KeyAccessToken)
	refreshErr := m.store.Remove(KeyRefreshToken)
	return errors.Join(accessErr, refreshErr)
}

// Info describes the stored access token as read from its JWT claims.
type Info struct {
	Subject    string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	HasRefresh bool
}

// Expired reports whether the token carries an expiry that is before now.
func (i Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Inspect decodes the stored access token claims without verifying the signature.
// The client never holds the signing key; the API remains the authority.
func (m *Manager) Inspect() (Info, error) {
	token := m.AccessToken()
	if token == "" {
		return Info{}, ErrNoSession
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Info{}, fmt.Errorf("parsing access token: %w", err)
	}

	info := Info{
		Subject:    claims.Subject,
		HasRefresh: m.RefreshToken() != "",
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
