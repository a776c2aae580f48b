// Package backend talks to the NotifiQ REST backend's token and account endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/notifiq-session/internal/errors"
	"github.com/jrsteele09/notifiq-session/internal/utils"
	"github.com/jrsteele09/notifiq-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultObtainPath      = "/api/token/"
	DefaultRefreshPath     = "/api/token/refresh/"
	DefaultRegisterPath    = "/api/register/"
	DefaultVerifyEmailPath = "/api/verify-email/"

	contentTypeJSON = "application/json"
	maxResponseSize = 1 << 20
)

// Client calls the backend's token and account endpoints
type Client struct {
	baseURL         string
	obtainPath      string
	refreshPath     string
	registerPath    string
	verifyEmailPath string
	userAgent       string
	httpClient      *http.Client
	logger          zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithPaths overrides the endpoint paths relative to the base URL
func WithPaths(obtainPath, refreshPath string) Option {
	return func(c *Client) {
		c.obtainPath = obtainPath
		c.refreshPath = refreshPath
	}
}

// New creates a client for the backend at baseURL (e.g. "http://localhost:8000")
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:         baseURL,
		obtainPath:      DefaultObtainPath,
		refreshPath:     DefaultRefreshPath,
		registerPath:    DefaultRegisterPath,
		verifyEmailPath: DefaultVerifyEmailPath,
		userAgent:       "notifiq-session",
		logger:          log.Logger,
	}

	for _, opt := range options {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.logger = c.logger.With().Str("component", "backend").Logger()
	return c
}

type obtainRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// tokenResponse covers both endpoints; refresh is only present when the backend rotates it
type tokenResponse struct {
	Access  string  `json:"access"`
	Refresh *string `json:"refresh,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// ObtainPair exchanges credentials for a token pair.
// Rejected credentials return ErrInvalidCredentials; see StatusError for other kinds.
func (c *Client) ObtainPair(ctx context.Context, identifier, secret string) (*token.Pair, error) {
	resp, err := c.post(ctx, "obtain", c.obtainPath, obtainRequest{Username: identifier, Password: secret}, apperrors.ErrInvalidCredentials)
	if err != nil {
		return nil, err
	}
	if resp.Access == "" || utils.Value(resp.Refresh) == "" {
		return nil, &StatusError{Op: "obtain", StatusCode: http.StatusOK, Detail: "incomplete token pair", kind: apperrors.ErrServer}
	}
	return &token.Pair{Access: resp.Access, Refresh: *resp.Refresh}, nil
}

// RefreshPair exchanges a refresh token for a new access token.
// When the backend does not rotate, the returned pair keeps the given refresh token.
func (c *Client) RefreshPair(ctx context.Context, refresh string) (*token.Pair, error) {
	resp, err := c.post(ctx, "refresh", c.refreshPath, refreshRequest{Refresh: refresh}, apperrors.ErrInvalidRefreshToken)
	if err != nil {
		return nil, err
	}
	if resp.Access == "" {
		return nil, &StatusError{Op: "refresh", StatusCode: http.StatusOK, Detail: "missing access token", kind: apperrors.ErrServer}
	}
	return &token.Pair{Access: resp.Access, Refresh: utils.ValueOr(resp.Refresh, refresh)}, nil
}

func (c *Client) post(ctx context.Context, op, path string, body any, rejectedKind error) (*tokenResponse, error) {
	status, data, err := c.send(ctx, op, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		statusErr := &StatusError{Op: op, StatusCode: status, kind: classify(status, rejectedKind)}
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil {
			statusErr.Detail = errResp.Detail
		}
		c.logger.Info().Str("op", op).Int("status", status).Str("detail", statusErr.Detail).Msg("token request rejected")
		return nil, statusErr
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(data, &tokenResp); err != nil {
		return nil, &StatusError{Op: op, StatusCode: status, Detail: "undecodable response body", kind: apperrors.ErrServer}
	}
	return &tokenResp, nil
}

// send performs one request and returns the status and the (size limited) body.
// A nil body sends no payload. Transport failures are tagged ErrNetwork.
func (c *Client) send(ctx context.Context, op, method, path string, body any) (int, []byte, error) {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("[backend %s] encode request: %w", op, err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("[backend %s] build request: %w", op, err)
	}
	requestID := uuid.New().String()
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With().Str("op", op).Str("request_id", requestID).Logger()
	logger.Debug().Str("method", method).Str("url", req.URL.String()).Msg("backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("backend request failed")
		return 0, nil, apperrors.Join(apperrors.ErrNetwork, fmt.Errorf("[backend %s] %w", op, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		logger.Warn().Err(err).Msg("reading backend response failed")
		return 0, nil, apperrors.Join(apperrors.ErrNetwork, fmt.Errorf("[backend %s] read body: %w", op, err))
	}
	return resp.StatusCode, data, nil
}

// classify maps a non-200 status to an error kind. 4xx auth statuses mean the
// credential was rejected; everything else is a server side problem.
func classify(statusCode int, rejectedKind error) error {
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return rejectedKind
	default:
		return apperrors.ErrServer
	}
}
