package common

import "errors"

// Sentinel errors shared by the client library, the CLI and the test
// backend. Match them with errors.Is.
var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Session errors.
	ErrNoCredential = errors.New("not authenticated")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Input errors.
	ErrValidation = errors.New("validation error")
)
