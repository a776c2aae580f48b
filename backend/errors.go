package backend

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/jrsteele09/notifiq-session/internal/errors"
)

// Error kinds returned by the client, matched with errors.Is
var (
	ErrInvalidCredentials  = apperrors.ErrInvalidCredentials
	ErrInvalidRefreshToken = apperrors.ErrInvalidRefreshToken
	ErrNetwork             = apperrors.ErrNetwork
	ErrServer              = apperrors.ErrServer

	ErrRegistrationRejected = apperrors.ErrRegistrationRejected
	ErrVerificationFailed   = apperrors.ErrVerificationFailed
)

// StatusError describes a response the client could not turn into a token pair
type StatusError struct {
	Op         string // "obtain", "refresh", "register" or "verify-email"
	StatusCode int    // HTTP status returned by the backend
	Detail     string // The backend's "detail" message, if any
	kind       error
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[backend %s] %s: status %d: %s", e.Op, e.kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("[backend %s] %s: status %d", e.Op, e.kind, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

// ValidationError carries the per-field messages of a rejected registration
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "[backend register] " + e.Message()
}

// Message joins every field message, in field order, the way the sign-up form shows them
func (e *ValidationError) Message() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var msgs []string
	for _, name := range names {
		msgs = append(msgs, e.Fields[name]...)
	}
	if len(msgs) == 0 {
		return ErrRegistrationRejected.Error()
	}
	return strings.Join(msgs, " ")
}

func (e *ValidationError) Unwrap() error {
	return ErrRegistrationRejected
}
