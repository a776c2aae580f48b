package errors

import (
	"errors"
	"fmt"
)

// Common error types for the NotifiQ session client
var (
	// Authentication errors
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Transport errors
	ErrNetwork = errors.New("network error")
	ErrServer  = errors.New("server error")

	// Token errors
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrNoRefreshToken = errors.New("no refresh token")

	// Session errors
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrForbidden       = errors.New("forbidden")
	ErrNotInitialized  = errors.New("session not initialized")
	ErrSessionReplaced = errors.New("session replaced during refresh")

	// Account errors
	ErrRegistrationRejected = errors.New("registration rejected")
	ErrVerificationFailed   = errors.New("verification link invalid or expired")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines a sentinel kind with a more specific cause so both match errors.Is
func Join(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
