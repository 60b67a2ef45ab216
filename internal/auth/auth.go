package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
)

// CredentialStore reads the admin account from a JSON file, falling back to a fixed
// username/hash pair (usually from the environment) when the file does not exist.
type CredentialStore struct {
	path         string
	fallbackUser string
	fallbackHash string
}

func NewCredentialStore(path, fallbackUser, fallbackHash string) *CredentialStore {
	return &CredentialStore{path: path, fallbackUser: fallbackUser, fallbackHash: fallbackHash}
}

// LoadAdmin returns the admin credential. ErrConfig when none is configured.
func (s *CredentialStore) LoadAdmin(_ context.Context) (*models.AdminCredential, error) {
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		switch {
		case err == nil:
			var cred models.AdminCredential
			if err := json.Unmarshal(data, &cred); err != nil {
				return nil, fmt.Errorf("%w: parse %s: %v", apperror.ErrConfig, s.path, err)
			}
			if cred.Username == "" || cred.PasswordHash == "" {
				return nil, fmt.Errorf("%w: %s has no username or password", apperror.ErrConfig, s.path)
			}
			return &cred, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: read %s: %v", apperror.ErrConfig, s.path, err)
		}
	}

	if s.fallbackUser == "" || s.fallbackHash == "" {
		return nil, fmt.Errorf("%w: no admin credentials configured", apperror.ErrConfig)
	}
	return &models.AdminCredential{Username: s.fallbackUser, PasswordHash: s.fallbackHash}, nil
}

// SaveAdmin writes a credential file (used by `server set-admin`), creating its directory.
func SaveAdmin(path string, cred models.AdminCredential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
