package memstore_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/notifiq-session/store"
	"github.com/jrsteele09/notifiq-session/store/memstore"
	"github.com/jrsteele09/notifiq-session/store/storetest"
	"github.com/jrsteele09/notifiq-session/token"
	"github.com/stretchr/testify/require"
)

func TestContract(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) store.Store {
		return memstore.New()
	})
}

func TestNewWithPair(t *testing.T) {
	s := memstore.NewWithPair(token.Pair{Access: "a", Refresh: "r"})
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "r", got.Refresh)
	require.Equal(t, 0, s.Saves())
}
