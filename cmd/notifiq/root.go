package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jrsteele09/notifiq-session/backend"
	"github.com/jrsteele09/notifiq-session/internal/config"
	"github.com/jrsteele09/notifiq-session/session"
	"github.com/jrsteele09/notifiq-session/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds what every command needs, built once in PersistentPreRunE
type app struct {
	config     config.Config
	logger     zerolog.Logger
	store      store.Store
	closeStore func() error
	registry   *prometheus.Registry
	client     *backend.Client
	manager    *session.Manager
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "notifiq",
		Short: "NotifiQ session client",
		Long:  "Logs in to a NotifiQ helpdesk backend and keeps the session's tokens fresh.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRegisterCmd(a),
		newVerifyEmailCmd(a),
		newAgentCmd(a),
		newStubBackendCmd(a),
	)
	return root
}

func (a *app) init() error {
	a.config = config.New()
	a.logger = newLogger(a.config)
	log.Logger = a.logger

	st, closeStore, err := openStore(a.config, a.logger)
	if err != nil {
		return err
	}
	a.store = st
	a.closeStore = closeStore
	a.registry = prometheus.NewRegistry()

	a.client = backend.New(a.config.GetAPIURL(),
		backend.WithLogger(a.logger),
		backend.WithUserAgent(a.config.GetAppName()+"-cli"),
	)
	a.manager = session.NewManager(a.client, a.store,
		session.WithLogger(a.logger),
		session.WithRefreshInterval(a.config.GetRefreshInterval()),
		session.WithRefreshTimeout(a.config.GetRequestTimeout()),
		session.WithExpiryLeeway(a.config.GetExpiryLeeway()),
		session.WithMetrics(session.NewMetrics(a.registry)),
	)
	return nil
}

func (a *app) close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}

// requestContext bounds a one-shot command's network work
func (a *app) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.config.GetRequestTimeout())
}

func newLogger(cfg config.EnvConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

// userMessage turns a session error into what the person at the terminal sees
func userMessage(err error, apiURL string) string {
	var validationErr *backend.ValidationError
	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, errPasswordMismatch):
		return "Passwords do not match."
	case errors.As(err, &validationErr):
		return "Registration failed: " + validationErr.Message()
	case errors.Is(err, backend.ErrVerificationFailed):
		if errors.As(err, &statusErr) && statusErr.Detail != "" {
			return statusErr.Detail
		}
		return "Activation link is invalid or has expired."
	case errors.Is(err, session.ErrInvalidCredentials):
		return loginFailedMessage
	case errors.Is(err, session.ErrNetwork):
		return fmt.Sprintf("Could not reach NotifiQ at %s. Please try again later.", apiURL)
	case errors.Is(err, session.ErrServer), errors.Is(err, session.ErrInvalidToken):
		return "NotifiQ could not process the request. Please try again later."
	case errors.Is(err, session.ErrInvalidRefreshToken),
		errors.Is(err, session.ErrNoRefreshToken),
		errors.Is(err, session.ErrNotLoggedIn),
		errors.Is(err, session.ErrTokenExpired):
		return "Your session has expired. Please log in again."
	default:
		return err.Error()
	}
}

const loginFailedMessage = "Failed to log in. Please check your email and password."

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrNotLoggedIn),
		errors.Is(err, backend.ErrRegistrationRejected),
		errors.Is(err, backend.ErrVerificationFailed),
		errors.Is(err, errPasswordMismatch):
		return 2
	case session.Retryable(err):
		return 3
	default:
		return 1
	}
}

// cliError keeps the cause for exitCode while printing a friendly message
type cliError struct {
	msg   string
	cause error
}

func (e *cliError) Error() string { return e.msg }
func (e *cliError) Unwrap() error { return e.cause }

func (a *app) fail(cmd *cobra.Command, err error) error {
	msg := userMessage(err, a.config.GetAPIURL())
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
	return &cliError{msg: msg, cause: err}
}
