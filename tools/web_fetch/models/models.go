package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL = errors.New("invalid url")
	ErrNotHTML    = errors.New("response is not html")
	ErrNoText     = errors.New("no readable text extracted")
)

// StatusError reports a non-2xx page response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}
