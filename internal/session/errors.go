package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCredentialsRequired is returned when the identifier or password is empty.
	ErrCredentialsRequired = errors.New("email and password are required")

	// ErrInvalidCredentials is returned for an unknown account and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrTooManyAttempts is returned when an identifier is throttled.
	ErrTooManyAttempts = errors.New("too many login attempts")

	// ErrDirectoryUnavailable wraps failures of the user directory.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// ThrottledError carries retry metadata for a throttled login.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	if e.RetryAfter <= 0 {
		return ErrTooManyAttempts.Error()
	}
	return fmt.Sprintf("%s: retry after %s", ErrTooManyAttempts.Error(), e.RetryAfter.Round(time.Second))
}

func (e ThrottledError) Unwrap() error { return ErrTooManyAttempts }
