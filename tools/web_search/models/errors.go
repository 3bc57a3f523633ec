package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingAPIKey is returned at construction time when no credential is configured.
var ErrMissingAPIKey = errors.New("search api key not configured")

// StatusError reports a non-2xx answer from a search provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s search returned status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s search returned status %d", e.Provider, e.StatusCode)
}

// Unauthorized reports whether the provider rejected the credential.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
