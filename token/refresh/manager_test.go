package refresh_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/notifiq-session/internal/config"
	apperrors "github.com/jrsteele09/notifiq-session/internal/errors"
	"github.com/jrsteele09/notifiq-session/token/refresh"
	refreshrepofake "github.com/jrsteele09/notifiq-session/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

func TestCreate_SingleTokenPerUser(t *testing.T) {
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	m := refresh.NewManager(repo, config.Session{})

	first, err := m.Create("alice")
	require.NoError(t, err)
	require.Len(t, first, 64, "32 random bytes hex encoded")

	second, err := m.Create("alice")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.Equal(t, 1, repo.Len())

	_, err = m.Validate(first)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestRotate(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), config.Session{})

	old, err := m.Create("alice")
	require.NoError(t, err)

	rt, next, err := m.Rotate(old)
	require.NoError(t, err)
	require.Equal(t, "alice", rt.UserID)
	require.NotEqual(t, old, next)

	_, _, err = m.Rotate(old)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken, "a rotated token cannot be reused")
}

func TestValidate_Expired(t *testing.T) {
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	m := refresh.NewManager(repo, config.Session{})

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	refresh.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { refresh.NowTimeFunc = time.Now })

	tok, err := m.Create("alice")
	require.NoError(t, err)

	now = now.Add(25 * time.Hour)
	_, err = m.Validate(tok)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	require.Equal(t, 0, repo.Len(), "expired tokens are deleted")
}
