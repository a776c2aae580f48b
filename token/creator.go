package token

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/notifiq-session/users"
)

// Creator builds NotifiQ access tokens. Only the stub backend and tests mint tokens;
// the session client just decodes them.
type Creator struct {
	signer Signer
}

// NewCreator creates a new access token creator
func NewCreator(signer Signer) *Creator {
	return &Creator{
		signer: signer,
	}
}

// CreateAccessToken creates an access token carrying the user's identity claims
func (c *Creator) CreateAccessToken(user *users.User, ttl time.Duration) (string, error) {
	now := NowTimeFunc()
	username := user.Username
	if username == "" {
		username = user.Email
	}
	claims := jwtlib.MapClaims{
		"token_type":   "access",
		"user_id":      user.ID,
		"sub":          user.ID,
		"username":     username,
		"email":        user.Email,
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"groups":       user.GroupNames(),
		"is_superuser": user.IsSuperuser,
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
		"jti":          uuid.New().String(),
	}

	signedToken, err := c.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signedToken, nil
}
