package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStoreUnavailable is returned by every backup store call when the
	// connection pool could not be constructed.
	ErrStoreUnavailable = errors.New("backup store unavailable")

	// Validation errors (missing id or email).
	ErrorValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrSyncInProgress is returned when a reconciliation is already running.
	ErrSyncInProgress = errors.New("sync already in progress")
)
