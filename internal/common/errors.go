// Package common defines shared constants and sentinel errors used across
// client and server layers of Health Records. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Session errors. Both collapse every underlying reason into one
	// client-facing condition.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Configuration errors. Fatal at startup.
	ErrMissingSigningKey = errors.New("jwt signing key is not configured")
	ErrMissingIssuer     = errors.New("jwt issuer is not configured")
	ErrMissingAudience   = errors.New("jwt audience is not configured")
)
