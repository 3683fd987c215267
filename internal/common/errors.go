// Package common defines shared constants and sentinel errors used across
// server and client layers of eventhub. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrTooManyAttempts = errors.New("too many failed login attempts, try again later")

	// Credential errors. The message is deliberately the same for an unknown
	// email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Access token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Refresh token lifecycle errors.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrUserMismatch        = errors.New("refresh token does not belong to user")

	// Upload errors.
	ErrUnsupportedImage = errors.New("only .jpg and .png images are allowed")
	ErrImageTooLarge    = errors.New("image is too large")
)

// ValidationError reports malformed or incomplete input. Fields lists the
// names of the offending request fields as the client sent them; Missing is
// set when they were absent rather than malformed.
type ValidationError struct {
	Message string
	Fields  []string
	Missing bool
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// NewValidationError builds a ValidationError for the given fields.
func NewValidationError(msg string, fields ...string) *ValidationError {
	return &ValidationError{Message: msg, Fields: fields}
}

// NewMissingFieldsError reports required fields that were absent or empty.
func NewMissingFieldsError(fields ...string) *ValidationError {
	return &ValidationError{Message: "missing required fields", Fields: fields, Missing: true}
}
