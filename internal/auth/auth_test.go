package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
)

func TestLoadAdmin_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.json")
	if err := SaveAdmin(path, models.AdminCredential{Username: "root", PasswordHash: "$2a$10$abc"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	cred, err := NewCredentialStore(path, "env-user", "env-hash").LoadAdmin(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cred.Username != "root" {
		t.Fatalf("expected file credentials to win, got %s", cred.Username)
	}
}

func TestLoadAdmin_FallbackWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	cred, err := NewCredentialStore(path, "admin", "hash").LoadAdmin(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cred.Username != "admin" || cred.PasswordHash != "hash" {
		t.Fatalf("unexpected credential %+v", cred)
	}
}

func TestLoadAdmin_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewCredentialStore(filepath.Join(dir, "none.json"), "", "").LoadAdmin(context.Background())
	if !errors.Is(err, apperror.ErrConfig) {
		t.Fatalf("expected ErrConfig without credentials, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = NewCredentialStore(bad, "admin", "hash").LoadAdmin(context.Background())
	if !errors.Is(err, apperror.ErrConfig) {
		t.Fatalf("expected ErrConfig for malformed file, got %v", err)
	}
}
