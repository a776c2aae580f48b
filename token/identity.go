package token

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/notifiq-session/internal/errors"
	"github.com/jrsteele09/notifiq-session/internal/utils"
)

// ITStaffGroup is the group that admits a user to the staff views
const ITStaffGroup = "IT Staff"

// Identity holds the user claims carried by a NotifiQ access token.
// It is always derived from an access token and never stored on its own.
type Identity struct {
	UserID      string    `json:"user_id"`                // Users unique ID
	Username    string    `json:"username,omitempty"`     // Login name (the email for NotifiQ accounts)
	Email       string    `json:"email,omitempty"`        // Users email address
	FirstName   string    `json:"first_name,omitempty"`   // Given name
	LastName    string    `json:"last_name,omitempty"`    // Family name
	Groups      []string  `json:"groups,omitempty"`       // Group memberships, e.g. "IT Staff"
	IsSuperuser bool      `json:"is_superuser,omitempty"` // Superuser flag
	TokenID     string    `json:"jti,omitempty"`          // Unique token ID
	IssuedAt    time.Time `json:"iat"`                    // Issued at time
	ExpiresAt   time.Time `json:"exp"`                    // Expiration
}

// Subject returns the user identifier
func (i *Identity) Subject() string {
	return i.UserID
}

// DisplayName joins first and last name, falling back to username then email
func (i *Identity) DisplayName() string {
	if name := strings.TrimSpace(i.FirstName + " " + i.LastName); name != "" {
		return name
	}
	if i.Username != "" {
		return i.Username
	}
	return i.Email
}

// Expired reports whether the token is expired at now. A positive leeway treats the
// token as expired that much earlier than its exp claim.
func (i *Identity) Expired(now time.Time, leeway time.Duration) bool {
	return !now.Add(leeway).Before(i.ExpiresAt)
}

func (i *Identity) HasGroup(group string) bool {
	return slices.Contains(i.Groups, group)
}

// IsITStaff reports whether the user is in the IT Staff group or is a superuser
func (i *Identity) IsITStaff() bool {
	return i.IsSuperuser || i.HasGroup(ITStaffGroup)
}

// Clone returns a deep copy so callers cannot mutate session state
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Groups = slices.Clone(i.Groups)
	return &c
}

// Decode extracts the identity from an access token without verifying its signature.
// The backend verifies signatures; the client only needs the payload.
func Decode(rawToken string) (*Identity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("%w: empty access token", apperrors.ErrInvalidToken)
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrInvalidToken, err)
	}

	claims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: error extracting claims", apperrors.ErrInvalidToken)
	}
	return identityFromClaims(claims)
}

// Verify parses the token, checks its signature with signer and decodes the identity
func Verify(rawToken string, signer Signer) (*Identity, error) {
	parsed, err := jwtlib.ParseWithClaims(rawToken, jwtlib.MapClaims{}, signer.GetVerificationKey,
		jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil || !parsed.Valid {
		return nil, apperrors.Join(apperrors.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: error extracting claims from token", apperrors.ErrInvalidToken)
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims jwtlib.MapClaims) (*Identity, error) {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing exp claim", apperrors.ErrInvalidToken)
	}

	userID := stringClaim(claims["user_id"])
	if userID == "" {
		userID, _ = claims.GetSubject()
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user identifier", apperrors.ErrInvalidToken)
	}

	identity := &Identity{
		UserID:    userID,
		Username:  stringClaim(claims["username"]),
		Email:     stringClaim(claims["email"]),
		FirstName: stringClaim(claims["first_name"]),
		LastName:  stringClaim(claims["last_name"]),
		Groups:    utils.ToStringSlice(claims["groups"]),
		TokenID:   stringClaim(claims["jti"]),
		ExpiresAt: exp.Time,
	}
	identity.IsSuperuser, _ = claims["is_superuser"].(bool)

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		identity.IssuedAt = iat.Time
	}
	return identity, nil
}

// stringClaim reads string claims and numeric ids (the backend encodes user_id as a number)
func stringClaim(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
