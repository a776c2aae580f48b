package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/notifiq-session/internal/errors"
)

// Registration is the sign-up form sent to the register endpoint
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

const defaultVerifiedMessage = "Email successfully verified! You can now log in."

// Register creates an account. The backend emails a verification link and the
// account cannot log in until it is followed. Field errors come back as a *ValidationError.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	status, data, err := c.send(ctx, "register", http.MethodPost, c.registerPath, reg)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		return nil
	case status >= 400 && status < 500:
		c.logger.Info().Int("status", status).Msg("registration rejected")
		return &ValidationError{Fields: fieldErrors(data)}
	default:
		return &StatusError{Op: "register", StatusCode: status, kind: apperrors.ErrServer}
	}
}

// VerifyEmail follows an emailed verification link and returns the backend's confirmation message
func (c *Client) VerifyEmail(ctx context.Context, uidb64, verificationToken string) (string, error) {
	if strings.TrimSpace(uidb64) == "" || strings.TrimSpace(verificationToken) == "" {
		return "", apperrors.Wrapf(apperrors.ErrVerificationFailed, "[backend verify-email] empty link")
	}
	path := c.verifyEmailPath + url.PathEscape(uidb64) + "/" + url.PathEscape(verificationToken) + "/"
	status, data, err := c.send(ctx, "verify-email", http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}

	var resp verifyResponse
	decodeErr := json.Unmarshal(data, &resp)
	switch {
	case status == http.StatusOK:
		if decodeErr != nil || resp.Message == "" {
			return defaultVerifiedMessage, nil
		}
		return resp.Message, nil
	case status >= 400 && status < 500:
		return "", &StatusError{Op: "verify-email", StatusCode: status, Detail: resp.Error, kind: apperrors.ErrVerificationFailed}
	default:
		return "", &StatusError{Op: "verify-email", StatusCode: status, kind: apperrors.ErrServer}
	}
}

// fieldErrors flattens a DRF style error body ({"field": ["msg", ...]} or {"detail": "msg"})
func fieldErrors(data []byte) map[string][]string {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	fields := make(map[string][]string, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case string:
			fields[name] = []string{v}
		case []any:
			for _, item := range v {
				if msg, ok := item.(string); ok {
					fields[name] = append(fields[name], msg)
				}
			}
		}
	}
	return fields
}
