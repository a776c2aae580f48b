package session_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/notifiq-session/session"
	"github.com/jrsteele09/notifiq-session/store"
	"github.com/jrsteele09/notifiq-session/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testSigner = token.NewHMACSigner("test-secret")

// mintAccess signs an access token for subject that expires at exp
func mintAccess(t *testing.T, subject string, exp time.Time, groups ...string) string {
	t.Helper()
	if groups == nil {
		groups = []string{}
	}
	raw, err := testSigner.Sign(jwtlib.MapClaims{
		"token_type":   "access",
		"user_id":      subject,
		"username":     subject + "@example.com",
		"email":        subject + "@example.com",
		"first_name":   subject,
		"groups":       groups,
		"is_superuser": false,
		"iat":          exp.Add(-5 * time.Minute).Unix(),
		"exp":          exp.Unix(),
		"jti":          subject + "-" + exp.Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	return raw
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Now()}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeIssuer accepts "<name>@example.com" with password "correct-pw" and mints
// tokens for <name>. Refresh tokens are "r1", "r2", ... and rotate on refresh.
type fakeIssuer struct {
	t   *testing.T
	now func() time.Time
	ttl time.Duration

	mu        sync.Mutex
	valid     map[string]string // refresh token to subject
	next      int
	groups    []string
	refreshFn func(ctx context.Context, refresh string) (*token.Pair, error)

	obtainCalls  atomic.Int64
	refreshCalls atomic.Int64
}

var _ session.Issuer = (*fakeIssuer)(nil)

func newFakeIssuer(t *testing.T, now func() time.Time) *fakeIssuer {
	t.Helper()
	return &fakeIssuer{
		t:     t,
		now:   now,
		ttl:   5 * time.Minute,
		valid: map[string]string{},
	}
}

func (f *fakeIssuer) issue(subject string) *token.Pair {
	f.next++
	refresh := "r" + strconv.Itoa(f.next)
	f.valid[refresh] = subject
	return &token.Pair{Access: mintAccess(f.t, subject, f.now().Add(f.ttl), f.groups...), Refresh: refresh}
}

func (f *fakeIssuer) ObtainPair(_ context.Context, identifier, secret string) (*token.Pair, error) {
	f.obtainCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()

	name, domain, ok := strings.Cut(identifier, "@")
	if !ok || name == "" || domain != "example.com" || secret != "correct-pw" {
		return nil, fmt.Errorf("[fake obtain] status 401: %w", session.ErrInvalidCredentials)
	}
	return f.issue(name), nil
}

func (f *fakeIssuer) RefreshPair(ctx context.Context, refresh string) (*token.Pair, error) {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	fn := f.refreshFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, refresh)
	}
	return f.rotate(refresh)
}

func (f *fakeIssuer) rotate(refresh string) (*token.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subject, ok := f.valid[refresh]
	if !ok {
		return nil, session.ErrInvalidRefreshToken
	}
	delete(f.valid, refresh)
	return f.issue(subject), nil
}

func (f *fakeIssuer) setRefresh(fn func(ctx context.Context, refresh string) (*token.Pair, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshFn = fn
}

func (f *fakeIssuer) setGroups(groups ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = groups
}

// flakyStore fails Save or Load on demand
type flakyStore struct {
	store.Store
	failSave atomic.Bool
	failLoad atomic.Bool
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) Load(ctx context.Context) (*token.Pair, error) {
	if s.failLoad.Load() {
		return nil, errors.New("corrupt")
	}
	return s.Store.Load(ctx)
}

func (s *flakyStore) Save(ctx context.Context, pair *token.Pair) error {
	if s.failSave.Load() {
		return errDiskFull
	}
	return s.Store.Save(ctx, pair)
}

// deadlineStore refuses to Save once the context it is handed is done, like a database driver would
type deadlineStore struct {
	store.Store
}

func (s deadlineStore) Save(ctx context.Context, pair *token.Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Save(ctx, pair)
}

func newManager(issuer session.Issuer, st store.Store, options ...session.Option) *session.Manager {
	options = append([]session.Option{session.WithLogger(zerolog.Nop())}, options...)
	return session.NewManager(issuer, st, options...)
}

func requireEmptyStore(t *testing.T, st store.Store) {
	t.Helper()
	_, err := st.Load(context.Background())
	require.ErrorIs(t, err, store.ErrNotFound)
}
