package apperror

import (
	"errors"
	"net/http"
)

var (
	// ErrAuth covers invalid, missing or expired tokens and sessions.
	ErrAuth = errors.New("unauthorized")
	// ErrNotFound covers unknown agent or command ids.
	ErrNotFound = errors.New("not_found")
	// ErrValidation covers malformed payloads.
	ErrValidation = errors.New("invalid_request")
	// ErrTransientNetwork marks a retryable delivery failure.
	ErrTransientNetwork = errors.New("transient_network")
	// ErrConfig is fatal and prevents startup.
	ErrConfig = errors.New("config_error")
	// ErrConflict marks a state transition that is not allowed.
	ErrConflict = errors.New("conflict")
)

const internalKind = "internal_error"

var kinds = []struct {
	err    error
	status int
}{
	{ErrAuth, http.StatusUnauthorized},
	{ErrNotFound, http.StatusNotFound},
	{ErrValidation, http.StatusBadRequest},
	{ErrConflict, http.StatusConflict},
	{ErrTransientNetwork, http.StatusServiceUnavailable},
	{ErrConfig, http.StatusInternalServerError},
}

// Kind returns the wire name of the error's category.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err.Error()
		}
	}
	return internalKind
}

// Status maps an error to the HTTP status code a handler should answer with.
func Status(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}
