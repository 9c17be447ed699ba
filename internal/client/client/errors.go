package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable means no response was received.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized matches 401/403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedPayload means a 2xx response could not be decoded.
	ErrMalformedPayload = errors.New("malformed response payload")
)

// APIError is a non-success HTTP status or a success:false body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// UserMessage picks the text for an inline error banner: the backend's own
// message when there is one, fallback otherwise.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrUnavailable) {
		return ErrUnavailable.Error()
	}
	return fallback
}
