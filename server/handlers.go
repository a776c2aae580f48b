package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/notifiq-session/session"
	"github.com/jrsteele09/notifiq-session/token"
)

// LoginFailedMessage is shown for rejected credentials
const LoginFailedMessage = "Failed to log in. Please check your email and password."

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type sessionResponse struct {
	State       string          `json:"state"`
	DisplayName string          `json:"display_name,omitempty"`
	IsITStaff   bool            `json:"is_it_staff"`
	Identity    *token.Identity `json:"identity,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": s.session.State().String()})
	}
}

func (s *Server) NoContentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// SessionHandler returns the current identity, or 401 when logged out or expired
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.session.Identity()
		if !ok {
			writeGuardError(w, session.ErrNotLoggedIn)
			return
		}
		writeJSON(w, http.StatusOK, newSessionResponse(s.session.State(), identity))
	}
}

// LoginHandler logs the agent in with the posted credentials and answers with the session, as SessionHandler does
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse request body", http.StatusBadRequest)
			return
		}

		if err := s.session.Login(r.Context(), strings.TrimSpace(req.Identifier), req.Secret); err != nil {
			s.logError(r.Method, r.URL.Path, session.Kind(err))
			writeSessionError(w, err)
			return
		}

		identity, _ := s.session.Identity()
		writeJSON(w, http.StatusOK, newSessionResponse(s.session.State(), identity))
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.session.Logout(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

// RefreshHandler forces a refresh, e.g. after a tool saw a 401 from the backend
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.session.Refresh(r.Context()); err != nil {
			s.logError(r.Method, r.URL.Path, session.Kind(err))
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// TokenHandler hands the bearer token to local tools. Must be behind RequireSession.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := s.session.AccessToken()
		if err != nil {
			writeSessionError(w, err)
			return
		}
		identity, _ := IdentityFromContext(r.Context())
		resp := tokenResponse{AccessToken: access, TokenType: "Bearer"}
		if identity != nil {
			resp.ExpiresAt = identity.ExpiresAt.Unix()
		}
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, resp)
	}
}

// StaffHandler returns the identity of an IT Staff user. Must be behind RequireITStaff.
func (s *Server) StaffHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeGuardError(w, session.ErrNotLoggedIn)
			return
		}
		writeJSON(w, http.StatusOK, newSessionResponse(session.StateLoggedIn, identity))
	}
}

func newSessionResponse(state session.State, identity *token.Identity) sessionResponse {
	resp := sessionResponse{State: state.String(), Identity: identity}
	if identity != nil {
		resp.DisplayName = identity.DisplayName()
		resp.IsITStaff = identity.IsITStaff()
	}
	return resp
}

// statusFor maps a session error to the agent's HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrInvalidRefreshToken),
		errors.Is(err, session.ErrNoRefreshToken),
		errors.Is(err, session.ErrNotLoggedIn),
		errors.Is(err, session.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrNetwork),
		errors.Is(err, session.ErrNotInitialized),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrServer),
		errors.Is(err, session.ErrInvalidToken):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrSessionReplaced):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	description := err.Error()
	if errors.Is(err, session.ErrInvalidCredentials) {
		description = LoginFailedMessage
	}
	writeJSONError(w, session.Kind(err), description, statusFor(err))
}

// writeGuardError writes a guard failure with the page the front end should redirect to
func writeGuardError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             strings.ReplaceAll(err.Error(), " ", "_"),
		"error_description": err.Error(),
		"redirect":          session.RedirectFor(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes an error response in the OAuth2 error shape
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
