// Package stubbackend is a development stand-in for the NotifiQ REST backend's
// token and account endpoints. It issues HS256 access tokens and opaque refresh
// tokens for users held in a users.UserRepo.
package stubbackend

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/notifiq-session/backend"
	"github.com/jrsteele09/notifiq-session/internal/config"
	"github.com/jrsteele09/notifiq-session/token"
	"github.com/jrsteele09/notifiq-session/token/refresh"
	"github.com/jrsteele09/notifiq-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json"

const (
	detailNoAccount    = "No active account found with the given credentials"
	detailTokenInvalid = "Token is invalid or expired"
	detailRequired     = "This field is required."
)

type Server struct {
	mux       *http.ServeMux
	users     users.UserRepo
	creator   *token.Creator
	refresh   *refresh.Manager
	accessTTL time.Duration
	rotate    bool
	logger    zerolog.Logger

	obtainCalls  atomic.Int64
	refreshCalls atomic.Int64

	verifyMu      sync.Mutex
	verifications map[string]string // user ID to pending verification token
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAccessTokenTTL overrides the access token lifetime from config
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithoutRotation makes the refresh endpoint return only a new access token,
// leaving the client's refresh token valid.
func WithoutRotation() Option {
	return func(s *Server) {
		s.rotate = false
	}
}

func New(userRepo users.UserRepo, refreshRepo refresh.Repo, signer token.Signer, cfg config.SessionConfig, options ...Option) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		users:     userRepo,
		creator:   token.NewCreator(signer),
		refresh:   refresh.NewManager(refreshRepo, cfg),
		accessTTL: cfg.GetStubAccessTokenExpiry(),
		rotate:    true,
		logger:    log.Logger,

		verifications: map[string]string{},
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "stubbackend").Logger()

	s.mux.HandleFunc("POST "+backend.DefaultObtainPath, s.ObtainHandler())
	s.mux.HandleFunc("POST "+backend.DefaultRefreshPath, s.RefreshHandler())
	s.mux.HandleFunc("POST "+backend.DefaultRegisterPath, s.RegisterHandler())
	s.mux.HandleFunc("GET "+backend.DefaultVerifyEmailPath+"{uidb64}/{token}/{$}", s.VerifyEmailHandler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// AddUser hashes password and stores the user as an active account
func (s *Server) AddUser(user *users.User, password string) error {
	hash, err := users.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.Active = true
	if user.DateJoined.IsZero() {
		user.DateJoined = token.NowTimeFunc()
	}
	return s.users.Upsert(user)
}

// ObtainCalls returns how many login requests have been served
func (s *Server) ObtainCalls() int64 {
	return s.obtainCalls.Load()
}

// RefreshCalls returns how many refresh requests have been served
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

type obtainRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type pairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ObtainHandler exchanges a username and password for an access/refresh pair
func (s *Server) ObtainHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.obtainCalls.Add(1)

		var req obtainRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
			return
		}
		if missing := requiredFields(map[string]string{"username": req.Username, "password": req.Password}); len(missing) > 0 {
			writeJSON(w, http.StatusBadRequest, missing)
			return
		}

		user, err := s.users.GetByEmail(strings.TrimSpace(req.Username))
		if err != nil || !user.Active || !user.CheckPassword(req.Password) {
			s.logger.Debug().Str("username", req.Username).Msg("rejected login")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": detailNoAccount})
			return
		}

		access, err := s.creator.CreateAccessToken(user, s.accessTTL)
		if err != nil {
			s.serverError(w, err)
			return
		}
		refreshToken, err := s.refresh.Create(user.ID)
		if err != nil {
			s.serverError(w, err)
			return
		}
		if err := s.users.SetLastLogin(user.Email, token.NowTimeFunc()); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record last login")
		}

		writeJSON(w, http.StatusOK, pairResponse{Access: access, Refresh: refreshToken})
	}
}

// RefreshHandler exchanges a refresh token for a new access token, rotating the
// refresh token unless rotation is disabled.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)

		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
			return
		}
		if missing := requiredFields(map[string]string{"refresh": req.Refresh}); len(missing) > 0 {
			writeJSON(w, http.StatusBadRequest, missing)
			return
		}

		var (
			stored *refresh.StoredRefreshToken
			next   string
			err    error
		)
		if s.rotate {
			stored, next, err = s.refresh.Rotate(req.Refresh)
		} else {
			stored, err = s.refresh.Validate(req.Refresh)
		}
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": detailTokenInvalid, "code": "token_not_valid"})
			return
		}

		user, err := s.users.GetByID(stored.UserID)
		if err != nil || !user.Active {
			if next != "" {
				_ = s.refresh.Delete(next)
			}
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "User not found", "code": "user_not_found"})
			return
		}

		access, err := s.creator.CreateAccessToken(user, s.accessTTL)
		if err != nil {
			s.serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pairResponse{Access: access, Refresh: next})
	}
}

// Revoke invalidates a refresh token, as if the account had been logged out elsewhere
func (s *Server) Revoke(refreshToken string) error {
	return s.refresh.Delete(refreshToken)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("token endpoint failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal server error"})
}

func requiredFields(fields map[string]string) map[string][]string {
	missing := map[string][]string{}
	for name, value := range fields {
		if value == "" {
			missing[name] = []string{detailRequired}
		}
	}
	return missing
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
