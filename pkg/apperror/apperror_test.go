package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   string
		status int
	}{
		{"auth", fmt.Errorf("validate token: %w", ErrAuth), "unauthorized", http.StatusUnauthorized},
		{"not found", fmt.Errorf("agent h1: %w", ErrNotFound), "not_found", http.StatusNotFound},
		{"validation", ErrValidation, "invalid_request", http.StatusBadRequest},
		{"conflict", ErrConflict, "conflict", http.StatusConflict},
		{"transient", fmt.Errorf("post: %w", ErrTransientNetwork), "transient_network", http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), "internal_error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.kind {
				t.Errorf("Kind() = %s, want %s", got, tt.kind)
			}
			if got := Status(tt.err); got != tt.status {
				t.Errorf("Status() = %d, want %d", got, tt.status)
			}
		})
	}
}
