package plantclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for any 401. The session has already been
	// cleared when a caller sees it.
	ErrUnauthorized = errors.New("plantclient: unauthorized")
	// ErrUnavailable means the server could not be reached within the retry
	// budget. A create may or may not have been stored; list to reconcile.
	ErrUnavailable = errors.New("plantclient: server unavailable")
)

// APIError is a non-2xx response carrying the server's message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plantclient: %d %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

func (e *APIError) temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
