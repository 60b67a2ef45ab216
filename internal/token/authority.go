// Package token issues and validates the bearer secrets agents present when they connect.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/Alwanly/service-fleet-monitor/internal/store"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
)

// SecretBytes is the entropy of generated secrets (hex encoded to 32 chars).
const SecretBytes = 16

// Token is a named agent secret.
type Token struct {
	Name   string `json:"name"`
	Secret string `json:"token"`
}

// SessionAuthorizer gates privileged calls.
type SessionAuthorizer interface {
	Authorize(sessionID string) bool
}

// Authority owns the name -> secret map and its reverse index. Both maps change together
// under one write lock so validation never sees a half-applied overwrite.
type Authority struct {
	store    store.TokenStore
	sessions SessionAuthorizer
	logger   *logger.CanonicalLogger

	mu       sync.RWMutex
	byName   map[string]string
	bySecret map[string]string
}

func NewAuthority(st store.TokenStore, sessions SessionAuthorizer, log *logger.CanonicalLogger) *Authority {
	return &Authority{
		store:    st,
		sessions: sessions,
		logger:   log.Component("token_authority"),
		byName:   make(map[string]string),
		bySecret: make(map[string]string),
	}
}

// Load replaces the in-memory maps with the persisted tokens.
func (a *Authority) Load(ctx context.Context) error {
	tokens, err := a.store.LoadTokens(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}

	byName := make(map[string]string, len(tokens))
	bySecret := make(map[string]string, len(tokens))
	for name, secret := range tokens {
		if name == "" || secret == "" {
			continue
		}
		if other, dup := bySecret[secret]; dup {
			a.logger.Warn("duplicate secret in token store, keeping first", logger.String("name", name), logger.String("kept", other))
			continue
		}
		byName[name] = secret
		bySecret[secret] = name
	}

	a.mu.Lock()
	a.byName = byName
	a.bySecret = bySecret
	a.mu.Unlock()

	a.logger.Info("tokens loaded", logger.Int("count", len(byName)))
	return nil
}

// Create issues (or overwrites) the token for name. An empty secret is generated.
// The previous secret for name stops validating as soon as Create returns.
func (a *Authority) Create(ctx context.Context, sessionID, name, secret string) (Token, error) {
	if !a.sessions.Authorize(sessionID) {
		return Token{}, fmt.Errorf("%w: admin session required", apperror.ErrAuth)
	}
	if name == "" {
		return Token{}, fmt.Errorf("%w: token name is required", apperror.ErrValidation)
	}
	if secret == "" {
		generated, err := GenerateSecret()
		if err != nil {
			return Token{}, fmt.Errorf("generate secret: %w", err)
		}
		secret = generated
	}

	a.mu.Lock()
	if owner, taken := a.bySecret[secret]; taken && owner != name {
		a.mu.Unlock()
		return Token{}, fmt.Errorf("%w: secret already issued to another name", apperror.ErrConflict)
	}
	if old, ok := a.byName[name]; ok {
		delete(a.bySecret, old)
	}
	a.byName[name] = secret
	a.bySecret[secret] = name
	a.mu.Unlock()

	if err := a.store.SaveToken(ctx, name, secret); err != nil {
		a.logger.WithError(err).Error("failed to persist token", logger.String(logger.FieldTokenName, name))
	}

	a.logger.Info("token issued", logger.String(logger.FieldTokenName, name))
	return Token{Name: name, Secret: secret}, nil
}

// Validate reports whether secret currently belongs to some token.
func (a *Authority) Validate(secret string) bool {
	_, ok := a.Lookup(secret)
	return ok
}

// Lookup returns the token name owning secret.
func (a *Authority) Lookup(secret string) (string, bool) {
	if secret == "" {
		return "", false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	name, ok := a.bySecret[secret]
	return name, ok
}

// Names returns the issued token names.
func (a *Authority) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.byName))
	for name := range a.byName {
		out = append(out, name)
	}
	return out
}

// GenerateSecret returns SecretBytes of crypto/rand, hex encoded.
func GenerateSecret() (string, error) {
	b := make([]byte, SecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
