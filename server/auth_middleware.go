package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/notifiq-session/session"
	"github.com/jrsteele09/notifiq-session/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyIdentity stores the *token.Identity of the logged in user
	ContextKeyIdentity ContextKey = "identity"
)

// IdentityFromContext returns the identity injected by RequireSession
func IdentityFromContext(ctx context.Context) (*token.Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(*token.Identity)
	return identity, ok && identity != nil
}

// RequireSession admits requests while the agent holds a valid session.
// Rejected requests get 401 with the login redirect.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return s.requireGuard(session.RequireUser)
}

// RequireITStaff admits IT Staff members and superusers. Other logged in users
// get 403 with the tickets redirect.
func (s *Server) RequireITStaff() func(http.HandlerFunc) http.HandlerFunc {
	return s.requireGuard(session.RequireITStaff)
}

func (s *Server) requireGuard(guard func(*token.Identity) error) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, _ := s.session.Identity()
			if err := guard(identity); err != nil {
				writeGuardError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			next(w, r.WithContext(ctx))
		}
	}
}
