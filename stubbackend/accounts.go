package stubbackend

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/notifiq-session/backend"
	"github.com/jrsteele09/notifiq-session/token"
	"github.com/jrsteele09/notifiq-session/users"
)

const (
	detailEmailTaken    = "user with this email already exists."
	detailUsernameTaken = "A user with that username already exists."
	detailEmailInvalid  = "Enter a valid email address."
	detailPasswordShort = "This password is too short. It must contain at least 8 characters."
	detailLinkInvalid   = "Activation link is invalid or has expired."
	messageVerified     = "Email successfully verified! You can now log in."

	minPasswordLength = 8
	listPageSize      = 100
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registeredResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RegisterHandler creates an inactive account and records a verification link for it.
// The link is logged rather than emailed.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)

		fieldErrs := requiredFields(map[string]string{"username": req.Username, "email": req.Email, "password": req.Password})
		if len(fieldErrs) == 0 {
			if _, _, ok := strings.Cut(req.Email, "@"); !ok {
				fieldErrs["email"] = []string{detailEmailInvalid}
			} else if _, err := s.users.GetByEmail(req.Email); err == nil {
				fieldErrs["email"] = []string{detailEmailTaken}
			}
			taken, err := s.usernameTaken(req.Username)
			if err != nil {
				s.serverError(w, err)
				return
			}
			if taken {
				fieldErrs["username"] = []string{detailUsernameTaken}
			}
			if len(req.Password) < minPasswordLength {
				fieldErrs["password"] = []string{detailPasswordShort}
			}
		}
		if len(fieldErrs) > 0 {
			writeJSON(w, http.StatusBadRequest, fieldErrs)
			return
		}

		hash, err := users.HashPassword(req.Password)
		if err != nil {
			s.serverError(w, err)
			return
		}
		user := &users.User{
			ID:           uuid.New().String(),
			Username:     req.Username,
			Email:        req.Email,
			FirstName:    req.Username,
			PasswordHash: hash,
			Groups:       []users.GroupType{users.GroupCustomers},
			DateJoined:   token.NowTimeFunc(),
		}
		if err := s.users.Upsert(user); err != nil {
			s.serverError(w, err)
			return
		}

		path := s.issueVerification(user.ID)
		s.logger.Info().Str("email", user.Email).Str("verify_path", path).Msg("verification link issued")
		writeJSON(w, http.StatusCreated, registeredResponse{Username: user.Username, Email: user.Email})
	}
}

// VerifyEmailHandler activates the account named by a verification link
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(r.PathValue("uidb64"), "="))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": detailLinkInvalid})
			return
		}
		userID := string(raw)

		s.verifyMu.Lock()
		defer s.verifyMu.Unlock()

		pending, ok := s.verifications[userID]
		if !ok || pending != r.PathValue("token") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": detailLinkInvalid})
			return
		}
		user, err := s.users.GetByID(userID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": detailLinkInvalid})
			return
		}

		activated := *user
		activated.Active = true
		if err := s.users.Upsert(&activated); err != nil {
			s.serverError(w, err)
			return
		}
		delete(s.verifications, userID)
		s.logger.Info().Str("email", activated.Email).Msg("email verified")
		writeJSON(w, http.StatusOK, map[string]string{"message": messageVerified})
	}
}

// VerificationPath returns the pending verification link for email, relative to the backend URL
func (s *Server) VerificationPath(email string) (string, bool) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return "", false
	}

	s.verifyMu.Lock()
	defer s.verifyMu.Unlock()
	pending, ok := s.verifications[user.ID]
	if !ok {
		return "", false
	}
	return verificationPath(user.ID, pending), true
}

func (s *Server) issueVerification(userID string) string {
	verificationToken := uuid.New().String()
	s.verifyMu.Lock()
	s.verifications[userID] = verificationToken
	s.verifyMu.Unlock()
	return verificationPath(userID, verificationToken)
}

// usernameTaken pages through every account; usernames are unique case-insensitively
func (s *Server) usernameTaken(username string) (bool, error) {
	for offset := 0; ; offset += listPageSize {
		page, err := s.users.List(offset, listPageSize)
		if err != nil {
			return false, err
		}
		for _, u := range page {
			if strings.EqualFold(u.Username, username) {
				return true, nil
			}
		}
		if len(page) < listPageSize {
			return false, nil
		}
	}
}

func verificationPath(userID, verificationToken string) string {
	return backend.DefaultVerifyEmailPath + base64.RawURLEncoding.EncodeToString([]byte(userID)) + "/" + verificationToken + "/"
}
