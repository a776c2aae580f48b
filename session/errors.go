package session

import (
	"context"
	"errors"

	apperrors "github.com/jrsteele09/notifiq-session/internal/errors"
)

// Errors returned by the Manager. Login and Refresh failures wrap one of the
// first four so callers can decide whether a retry makes sense.
var (
	ErrInvalidCredentials  = apperrors.ErrInvalidCredentials
	ErrInvalidRefreshToken = apperrors.ErrInvalidRefreshToken
	ErrNetwork             = apperrors.ErrNetwork
	ErrServer              = apperrors.ErrServer
	ErrInvalidToken        = apperrors.ErrInvalidToken
	ErrTokenExpired        = apperrors.ErrTokenExpired
	ErrNoRefreshToken      = apperrors.ErrNoRefreshToken
	ErrNotLoggedIn         = apperrors.ErrNotLoggedIn
	ErrForbidden           = apperrors.ErrForbidden
	ErrNotInitialized      = apperrors.ErrNotInitialized
	ErrSessionReplaced     = apperrors.ErrSessionReplaced
)

// Kind labels the cause of a login or refresh error, e.g. for metrics and user messages
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidRefreshToken):
		return "invalid_refresh_token"
	case errors.Is(err, ErrNoRefreshToken):
		return "no_refresh_token"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrServer):
		return "server"
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return "invalid_token"
	case errors.Is(err, ErrSessionReplaced):
		return "replaced"
	case errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// Retryable reports whether the failure was transport or server side rather than a rejected credential
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer)
}
