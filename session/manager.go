// Package session owns the NotifiQ authentication session of a running client:
// the access/refresh token pair, the identity decoded from the access token,
// and the lifecycle that keeps them valid.
//
// A Manager is constructed once at application start and passed to whatever
// needs the current user. Consumers read Identity or AccessToken and attach the
// bearer token to their own requests; the Manager never intercepts them.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/notifiq-session/internal/errors"
	"github.com/jrsteele09/notifiq-session/store"
	"github.com/jrsteele09/notifiq-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshInterval is how often Run refreshes a logged in session
const DefaultRefreshInterval = 4 * time.Minute

// DefaultRefreshTimeout bounds a single shared refresh request
const DefaultRefreshTimeout = 30 * time.Second

const refreshFlightKey = "refresh"

// Issuer obtains and refreshes token pairs. backend.Client implements it.
type Issuer interface {
	ObtainPair(ctx context.Context, identifier, secret string) (*token.Pair, error)
	RefreshPair(ctx context.Context, refresh string) (*token.Pair, error)
}

// Manager maintains exactly one authentication session
type Manager struct {
	issuer          Issuer
	store           store.Store
	logger          zerolog.Logger
	nowFunc         func() time.Time
	refreshInterval time.Duration
	refreshTimeout  time.Duration
	expiryLeeway    time.Duration
	metrics         *Metrics
	listener        func(State)

	mu         sync.RWMutex
	state      State
	pair       *token.Pair     // nil when logged out
	identity   *token.Identity // always decoded from pair.Access; nil when the access token is undecodable
	generation uint64          // bumped whenever the session is replaced or cleared

	startOnce    sync.Once
	loginMu      sync.Mutex
	refreshGroup singleflight.Group
}

// Option configures a Manager
type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		m.refreshInterval = interval
	}
}

// WithRefreshTimeout bounds each refresh request independently of the callers waiting on it
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.refreshTimeout = timeout
	}
}

// WithExpiryLeeway treats access tokens as expired this long before their exp claim
func WithExpiryLeeway(leeway time.Duration) Option {
	return func(m *Manager) {
		m.expiryLeeway = leeway
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithStateListener registers a callback invoked whenever the state changes.
// It runs on the goroutine that caused the transition and must not call back into the Manager's mutators.
func WithStateListener(listener func(State)) Option {
	return func(m *Manager) {
		m.listener = listener
	}
}

// NewManager creates a Manager in the Uninitialized state. Call Start before use.
func NewManager(issuer Issuer, store store.Store, options ...Option) *Manager {
	m := &Manager{
		issuer:     issuer,
		store:      store,
		logger:     log.Logger,
		state:      StateUninitialized,
		generation: 1,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	if m.refreshInterval <= 0 {
		m.refreshInterval = DefaultRefreshInterval
	}
	if m.refreshTimeout <= 0 {
		m.refreshTimeout = DefaultRefreshTimeout
	}
	m.logger = m.logger.With().Str("component", "session").Logger()
	return m
}

// Start seeds the session from the store. With nothing persisted the session is
// logged out; otherwise one refresh decides between logged in and logged out.
// If ctx ends before the refresh answers, the session is logged out but the
// persisted pair is kept for the next start. Only the first call does any work.
func (m *Manager) Start(ctx context.Context) State {
	m.startOnce.Do(func() {
		pair, err := m.store.Load(ctx)
		switch {
		case errors.Is(err, store.ErrNotFound):
			m.logger.Debug().Msg("no persisted session")
			m.clear(ctx, 0, "startup: nothing persisted", false)
			return
		case err != nil:
			m.logger.Warn().Err(err).Msg("persisted session unreadable, clearing")
			m.clear(ctx, 0, "startup: unreadable", true)
			return
		case strings.TrimSpace(pair.Refresh) == "":
			m.logger.Info().Msg("persisted session has no refresh token, clearing")
			m.clear(ctx, 0, "startup: no refresh token", true)
			return
		}

		// Seed memory before any authenticated request is allowed. The access token is
		// usually stale after a restart, so the identity may be nil until the refresh lands.
		identity, _ := token.Decode(pair.Access)
		m.mu.Lock()
		m.pair = pair
		m.identity = identity
		gen := m.generation
		m.mu.Unlock()

		if err := m.Refresh(ctx); err != nil {
			m.logger.Info().Err(err).Msg("startup refresh failed")
		}
		m.settleStart(gen)
	})
	return m.State()
}

// settleStart logs out a session whose startup refresh has not answered yet.
// The generation is kept so the outstanding refresh can still install its result,
// and nothing is purged so the next start can try again.
func (m *Manager) settleStart(gen uint64) {
	m.mu.Lock()
	prev := m.state
	interrupted := prev == StateUninitialized && m.generation == gen
	if interrupted {
		m.pair = nil
		m.identity = nil
		m.state = StateLoggedOut
	}
	m.mu.Unlock()

	if interrupted {
		m.logger.Info().Msg("startup refresh did not finish, starting logged out")
		m.notify(prev, StateLoggedOut)
	}
}

// Login exchanges credentials for a token pair and makes it the current session.
// On failure the existing session, if any, is left untouched.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	if strings.TrimSpace(identifier) == "" || secret == "" {
		m.metrics.observeLogin(ErrInvalidCredentials)
		return apperrors.Wrapf(ErrInvalidCredentials, "[Manager Login] empty identifier or secret")
	}

	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	pair, err := m.issuer.ObtainPair(ctx, identifier, secret)
	if err != nil {
		m.metrics.observeLogin(err)
		m.logger.Info().Err(err).Msg("login failed")
		return err
	}

	identity, err := m.decode(pair.Access)
	if err != nil {
		m.metrics.observeLogin(err)
		m.logger.Warn().Err(err).Msg("login returned an unusable access token")
		return err
	}

	m.mu.Lock()
	if err := m.store.Save(ctx, pair); err != nil {
		m.mu.Unlock()
		m.metrics.observeLogin(err)
		return apperrors.Wrapf(err, "[Manager Login] persist session")
	}
	prev := m.install(pair, identity)
	m.mu.Unlock()

	m.metrics.observeLogin(nil)
	m.logger.Info().Str("user_id", identity.Subject()).Msg("logged in")
	m.notify(prev, StateLoggedIn)
	return nil
}

// Logout clears both tokens and the identity and removes the persisted copy.
// Calling it while logged out is a no-op.
func (m *Manager) Logout(ctx context.Context) {
	m.clear(ctx, 0, "logout", true)
}

// Refresh exchanges the refresh token for a new access token. Concurrent callers
// share a single in-flight request that runs detached from any one caller's
// context and is bounded by the refresh timeout. A caller whose context ends
// stops waiting and gets ctx.Err(); the request carries on for the others.
// Any failure of the request itself logs the session out.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	var refresh string
	if m.pair != nil {
		refresh = m.pair.Refresh
	}
	gen := m.generation
	m.mu.RUnlock()

	if strings.TrimSpace(refresh) == "" {
		m.metrics.observeRefresh(ErrNoRefreshToken, 0)
		m.clear(ctx, gen, "refresh: no refresh token", true)
		return ErrNoRefreshToken
	}

	ch := m.refreshGroup.DoChan(refreshFlightKey, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return nil, m.doRefresh(flightCtx, refresh, gen)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) doRefresh(ctx context.Context, refresh string, gen uint64) error {
	start := m.nowFunc()
	pair, err := m.issuer.RefreshPair(ctx, refresh)
	if err == nil {
		pair.Refresh = strings.TrimSpace(pair.Refresh)
		if pair.Refresh == "" {
			pair.Refresh = refresh
		}
	}
	var identity *token.Identity
	if err == nil {
		identity, err = m.decode(pair.Access)
	}
	elapsed := m.nowFunc().Sub(start)

	if err != nil {
		m.metrics.observeRefresh(err, elapsed)
		m.logger.Warn().Err(err).Msg("refresh failed, logging out")
		m.clear(ctx, gen, "refresh failed", true)
		return err
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.metrics.observeRefresh(ErrSessionReplaced, elapsed)
		return ErrSessionReplaced
	}
	if err := m.store.Save(context.WithoutCancel(ctx), pair); err != nil {
		m.mu.Unlock()
		m.metrics.observeRefresh(err, elapsed)
		m.logger.Error().Err(err).Msg("persisting refreshed session failed, logging out")
		m.clear(ctx, gen, "refresh: persist failed", true)
		return apperrors.Wrapf(err, "[Manager Refresh] persist session")
	}
	prev := m.install(pair, identity)
	m.mu.Unlock()

	m.metrics.observeRefresh(nil, elapsed)
	m.logger.Debug().Str("user_id", identity.Subject()).Time("expires_at", identity.ExpiresAt).Msg("session refreshed")
	m.notify(prev, StateLoggedIn)
	return nil
}

// Run refreshes the session every refresh interval while logged in, until ctx is cancelled
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.State() != StateLoggedIn {
				continue
			}
			if err := m.Refresh(ctx); err != nil && ctx.Err() == nil {
				m.logger.Info().Err(err).Msg("scheduled refresh failed")
			}
		}
	}
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Identity returns a copy of the current user's identity. It reports false when
// logged out or when the access token has expired locally.
func (m *Manager) Identity() (*token.Identity, bool) {
	_, identity, err := m.current()
	if err != nil {
		return nil, false
	}
	return identity, true
}

// AccessToken returns the bearer token for authenticated requests
func (m *Manager) AccessToken() (string, error) {
	access, _, err := m.current()
	return access, err
}

// current returns the access token and a copy of its identity as one consistent snapshot
func (m *Manager) current() (string, *token.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case m.state == StateUninitialized:
		return "", nil, ErrNotInitialized
	case m.state != StateLoggedIn || m.pair == nil:
		return "", nil, ErrNotLoggedIn
	case m.identity == nil || m.identity.Expired(m.nowFunc(), m.expiryLeeway):
		return "", nil, ErrTokenExpired
	}
	return m.pair.Access, m.identity.Clone(), nil
}

// decode derives the identity from an access token and rejects tokens that are already expired
func (m *Manager) decode(access string) (*token.Identity, error) {
	identity, err := token.Decode(access)
	if err != nil {
		return nil, err
	}
	if identity.Expired(m.nowFunc(), m.expiryLeeway) {
		return nil, apperrors.Join(ErrInvalidToken, ErrTokenExpired)
	}
	return identity, nil
}

// install swaps in a new session. Callers hold m.mu.
func (m *Manager) install(pair *token.Pair, identity *token.Identity) State {
	prev := m.state
	m.pair = pair
	m.identity = identity
	m.state = StateLoggedIn
	m.generation++
	return prev
}

// clear drops the session and, when purge is set, the persisted copy. A non-zero
// gen only clears if the session has not been replaced since gen was read.
func (m *Manager) clear(ctx context.Context, gen uint64, reason string, purge bool) {
	m.mu.Lock()
	if gen != 0 && m.generation != gen {
		m.mu.Unlock()
		return
	}
	prev := m.state
	hadSession := m.pair != nil
	m.pair = nil
	m.identity = nil
	m.state = StateLoggedOut
	m.generation++
	if purge {
		// Cleanup must happen even when the caller's context is already done
		if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
			m.logger.Error().Err(err).Msg("clearing persisted session failed")
		}
	}
	m.mu.Unlock()

	if hadSession {
		m.metrics.observeLogout(reason)
		m.logger.Info().Str("reason", reason).Msg("logged out")
	}
	m.notify(prev, StateLoggedOut)
}

func (m *Manager) notify(prev, next State) {
	m.metrics.setState(next)
	if m.listener != nil && prev != next {
		m.listener(next)
	}
}
