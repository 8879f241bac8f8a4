package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrMarkerNotFound         = errors.New("marker not found")
	ErrTokenExpired           = errors.New("token has expired")
	ErrTokenInvalidated       = errors.New("token has been invalidated")
	ErrInvalidToken           = errors.New("invalid token")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrNotFound               = errors.New("resource not found")
)

// StatusError is returned for every response outside the 2xx range
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, string(e.Body))
}

// IsAuthExpired reports whether err is a 401 response from the API.
func IsAuthExpired(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusUnauthorized
	}
	return false
}
