// Package storetest holds the behaviour every store.Store implementation must satisfy.
package storetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/notifiq-session/store"
	"github.com/jrsteele09/notifiq-session/token"
	"github.com/stretchr/testify/require"
)

// RunContract exercises newStore against the Store contract.
// newStore must return an empty store each time it is called.
func RunContract(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("load empty", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save then load", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, &token.Pair{Access: "a1", Refresh: "r1"}))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, &token.Pair{Access: "a1", Refresh: "r1"}, got)
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, &token.Pair{Access: "a1", Refresh: "r1"}))
		require.NoError(t, s.Save(ctx, &token.Pair{Access: "a2", Refresh: "r2"}))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "a2", got.Access)
		require.Equal(t, "r2", got.Refresh)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, &token.Pair{Access: "a1", Refresh: "r1"}))
		require.NoError(t, s.Clear(ctx))
		require.NoError(t, s.Clear(ctx))

		_, err := s.Load(ctx)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("loaded pair is a copy", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, &token.Pair{Access: "a1", Refresh: "r1"}))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		got.Access = "mutated"

		again, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "a1", again.Access)
	})
}
