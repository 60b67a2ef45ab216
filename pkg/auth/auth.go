package authentication

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// IPasswordVerifier checks a password against a stored hash.
type IPasswordVerifier interface {
	Verify(hash, password string) bool
	// Name identifies the primitive in startup logs
	Name() string
	// Secure is false for the fast fallback hash
	Secure() bool
}

type bcryptVerifier struct{}

// NewBcryptVerifier returns the adaptive (salted, slow) verifier.
func NewBcryptVerifier() IPasswordVerifier {
	return bcryptVerifier{}
}

func (bcryptVerifier) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (bcryptVerifier) Name() string { return "bcrypt" }

func (bcryptVerifier) Secure() bool { return true }

type sha256Verifier struct{}

// NewSHA256Verifier returns the fast unsalted fallback. Only for legacy credential files.
func NewSHA256Verifier() IPasswordVerifier {
	return sha256Verifier{}
}

func (sha256Verifier) Verify(hash, password string) bool {
	sum := sha256.Sum256([]byte(password))
	want := strings.ToLower(strings.TrimSpace(hash))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(want)) == 1
}

func (sha256Verifier) Name() string { return "sha256" }

func (sha256Verifier) Secure() bool { return false }

// IsBcryptHash reports whether hash is in modular crypt format produced by bcrypt.
func IsBcryptHash(hash string) bool {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return false
	}
	return true
}

// SelectVerifier picks the primitive matching the stored hash. Called once at startup.
func SelectVerifier(hash string) IPasswordVerifier {
	if IsBcryptHash(hash) {
		return NewBcryptVerifier()
	}
	return NewSHA256Verifier()
}

// HashPassword produces a bcrypt hash for new credential files.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseBearer extracts the credential from an "Authorization: Bearer <x>" header value.
func ParseBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
