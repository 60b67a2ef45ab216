package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Alwanly/service-fleet-monitor/internal/store"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
)

type allowSessions map[string]bool

func (a allowSessions) Authorize(id string) bool { return a[id] }

func newAuthority(st store.TokenStore) *Authority {
	return NewAuthority(st, allowSessions{"sess": true}, logger.NewNop())
}

func TestCreate_ValidatesOnlyIssuedSecret(t *testing.T) {
	a := newAuthority(store.NewMemory())

	tok, err := a.Create(context.Background(), "sess", "node-1", "abc123")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tok.Name != "node-1" || tok.Secret != "abc123" {
		t.Fatalf("unexpected token %+v", tok)
	}
	if !a.Validate("abc123") {
		t.Fatal("expected issued secret to validate")
	}
	for _, other := range []string{"", "abc12", "abc1234", "ABC123", "node-1"} {
		if a.Validate(other) {
			t.Errorf("expected %q to be rejected", other)
		}
	}
}

func TestCreate_GeneratesSecret(t *testing.T) {
	a := newAuthority(store.NewMemory())

	tok, err := a.Create(context.Background(), "sess", "node-1", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tok.Secret) != SecretBytes*2 {
		t.Fatalf("expected %d hex chars, got %q", SecretBytes*2, tok.Secret)
	}
	if !a.Validate(tok.Secret) {
		t.Fatal("expected generated secret to validate")
	}

	again, _ := a.Create(context.Background(), "sess", "node-2", "")
	if again.Secret == tok.Secret {
		t.Fatal("expected distinct generated secrets")
	}
}

func TestCreate_OverwriteInvalidatesOldSecret(t *testing.T) {
	a := newAuthority(store.NewMemory())

	old, _ := a.Create(context.Background(), "sess", "node-1", "")
	fresh, _ := a.Create(context.Background(), "sess", "node-1", "")

	if a.Validate(old.Secret) {
		t.Fatal("expected previous secret to be invalid after overwrite")
	}
	if !a.Validate(fresh.Secret) {
		t.Fatal("expected new secret to validate")
	}
	if name, _ := a.Lookup(fresh.Secret); name != "node-1" {
		t.Fatalf("expected lookup to return node-1, got %q", name)
	}
}

func TestCreate_Errors(t *testing.T) {
	a := newAuthority(store.NewMemory())

	if _, err := a.Create(context.Background(), "bogus", "node-1", ""); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("expected ErrAuth without session, got %v", err)
	}
	if _, err := a.Create(context.Background(), "sess", "", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty name, got %v", err)
	}

	_, _ = a.Create(context.Background(), "sess", "node-1", "shared")
	if _, err := a.Create(context.Background(), "sess", "node-2", "shared"); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected ErrConflict for reused secret, got %v", err)
	}
	// re-issuing the same secret for the same name is allowed
	if _, err := a.Create(context.Background(), "sess", "node-1", "shared"); err != nil {
		t.Fatalf("expected idempotent re-issue, got %v", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	st := store.NewMemory()
	a := newAuthority(st)
	tok, _ := a.Create(context.Background(), "sess", "node-1", "")

	reloaded := newAuthority(st)
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reloaded.Validate(tok.Secret) {
		t.Fatal("expected persisted secret to validate after reload")
	}
	if names := reloaded.Names(); len(names) != 1 || names[0] != "node-1" {
		t.Fatalf("unexpected names %v", names)
	}
}

type failingStore struct{ *store.Memory }

func (failingStore) SaveToken(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestCreate_StoreFailureKeepsMemoryAuthoritative(t *testing.T) {
	a := newAuthority(failingStore{store.NewMemory()})
	tok, err := a.Create(context.Background(), "sess", "node-1", "")
	if err != nil {
		t.Fatalf("expected create to succeed despite store failure, got %v", err)
	}
	if !a.Validate(tok.Secret) {
		t.Fatal("expected in-memory state to validate")
	}
}

func TestConcurrentCreateAndValidate(t *testing.T) {
	a := newAuthority(store.NewMemory())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = a.Create(context.Background(), "sess", fmt.Sprintf("node-%d", i%4), "")
		}(i)
		go func() {
			defer wg.Done()
			_ = a.Validate("whatever")
		}()
	}
	wg.Wait()

	if n := len(a.Names()); n != 4 {
		t.Fatalf("expected 4 names, got %d", n)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.bySecret) != len(a.byName) {
		t.Fatalf("reverse index out of sync: %d vs %d", len(a.bySecret), len(a.byName))
	}
}
