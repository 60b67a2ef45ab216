// Package session keeps the table of authenticated admin sessions.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/internal/store"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	authentication "github.com/Alwanly/service-fleet-monitor/pkg/auth"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
)

const DefaultTTL = time.Hour

// Manager issues and checks admin sessions. One active session per admin:
// a new login replaces the previous one.
type Manager struct {
	creds    store.CredentialStore
	verifier authentication.IPasswordVerifier
	ttl      time.Duration
	now      func() time.Time
	logger   *logger.CanonicalLogger

	mu      sync.RWMutex
	byID    map[string]models.Session
	byAdmin map[string]string
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func NewManager(creds store.CredentialStore, verifier authentication.IPasswordVerifier, log *logger.CanonicalLogger, opts ...Option) *Manager {
	m := &Manager{
		creds:    creds,
		verifier: verifier,
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   log.Component("session"),
		byID:     make(map[string]models.Session),
		byAdmin:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login verifies the admin credentials and issues a fresh session.
func (m *Manager) Login(ctx context.Context, username, password string) (models.Session, error) {
	cred, err := m.creds.LoadAdmin(ctx)
	if err != nil {
		return models.Session{}, err
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cred.Username)) == 1
	// always run the verifier so timing does not reveal a wrong username
	passOK := m.verifier.Verify(cred.PasswordHash, password)
	if !userOK || !passOK {
		return models.Session{}, fmt.Errorf("%w: invalid credentials", apperror.ErrAuth)
	}

	id, err := newSessionID()
	if err != nil {
		return models.Session{}, fmt.Errorf("generate session id: %w", err)
	}
	now := m.now()
	sess := models.Session{
		ID:        id,
		Username:  cred.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	if prev, ok := m.byAdmin[cred.Username]; ok {
		delete(m.byID, prev)
	}
	m.byID[id] = sess
	m.byAdmin[cred.Username] = id
	m.mu.Unlock()

	m.logger.Info("admin session issued", logger.String("username", cred.Username), logger.Time("expires_at", sess.ExpiresAt))
	return sess, nil
}

// Authorize reports whether id names a live session.
func (m *Manager) Authorize(id string) bool {
	if id == "" {
		return false
	}
	m.mu.RLock()
	sess, ok := m.byID[id]
	m.mu.RUnlock()
	return ok && m.now().Before(sess.ExpiresAt)
}

// Logout drops the session. Unknown ids are ignored.
func (m *Manager) Logout(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byID, id)
	if m.byAdmin[sess.Username] == id {
		delete(m.byAdmin, sess.Username)
	}
}

// SweepExpired removes sessions past their expiry and returns how many were removed.
func (m *Manager) SweepExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, sess := range m.byID {
		if now.Before(sess.ExpiresAt) {
			continue
		}
		delete(m.byID, id)
		if m.byAdmin[sess.Username] == id {
			delete(m.byAdmin, sess.Username)
		}
		removed++
	}
	return removed
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
