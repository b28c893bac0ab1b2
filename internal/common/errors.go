// Package common defines the sentinel errors and shared constants used across
// MegaVault server and client layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Authentication errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Authorization errors (identity valid, key outside its scope).
	ErrForbidden = errors.New("forbidden")

	// Request validation errors.
	ErrValidation = errors.New("validation error")

	// Object absent or not public.
	ErrNotFound = errors.New("not found")

	// Object-store multipart upload unknown to the store (completed, aborted or expired).
	ErrNoSuchUpload = errors.New("no such upload")

	// Object store or side-store failures.
	ErrUpstream = errors.New("upstream failure")

	// A two-step write whose first step succeeded and second step failed.
	ErrPartiallyApplied = errors.New("partially applied")
)
