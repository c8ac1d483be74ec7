// Package common defines shared constants, sentinel errors and version-id
// helpers used by both the theme server and the client. Callers should use
// errors.Is to match the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorCorrupted    = errors.New("stored content does not match its hash")

	// Request validation errors.
	ErrorInvalidVersion = errors.New("invalid version")
	ErrorInvalidSource  = errors.New("invalid source")
	ErrorTooLarge       = errors.New("payload too large")

	// Auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
