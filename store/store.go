// Package store persists the session's token pair between process runs.
package store

import (
	"context"

	apperrors "github.com/jrsteele09/notifiq-session/internal/errors"
	"github.com/jrsteele09/notifiq-session/token"
)

// Key is the single durable key holding the serialized token pair
const Key = "authTokens"

// ErrNotFound is returned by Load when nothing is persisted
var ErrNotFound = apperrors.ErrNotFound

// Store is durable storage for one token pair.
// Only the session manager writes to it.
type Store interface {
	// Load returns the persisted pair, or ErrNotFound when absent
	Load(ctx context.Context) (*token.Pair, error)

	// Save replaces the persisted pair
	Save(ctx context.Context, pair *token.Pair) error

	// Clear removes the persisted pair; clearing an empty store is not an error
	Clear(ctx context.Context) error
}
