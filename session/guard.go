package session

import (
	"errors"

	"github.com/jrsteele09/notifiq-session/token"
)

// Paths a front end redirects to when a guard fails
const (
	LoginPath   = "/login"
	TicketsPath = "/tickets"
)

// RequireUser admits any logged in user
func RequireUser(identity *token.Identity) error {
	if identity == nil {
		return ErrNotLoggedIn
	}
	return nil
}

// RequireITStaff admits members of the IT Staff group and superusers
func RequireITStaff(identity *token.Identity) error {
	if err := RequireUser(identity); err != nil {
		return err
	}
	if !identity.IsITStaff() {
		return ErrForbidden
	}
	return nil
}

// RedirectFor returns where a failed guard sends the user: logged out users go
// to the login page, users lacking a role go back to their tickets.
func RedirectFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrForbidden):
		return TicketsPath
	default:
		return LoginPath
	}
}
