package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/notifiq-session/store"
	"github.com/jrsteele09/notifiq-session/token"
)

var _ store.Store = (*InMemoryStore)(nil)

// InMemoryStore is a thread-safe in-memory Store
type InMemoryStore struct {
	mu     sync.RWMutex
	pair   *token.Pair
	saves  int
	clears int
}

func New() *InMemoryStore {
	return &InMemoryStore{}
}

// NewWithPair returns a store already holding pair, as if persisted by a previous run
func NewWithPair(pair token.Pair) *InMemoryStore {
	return &InMemoryStore{pair: &pair}
}

func (s *InMemoryStore) Load(_ context.Context) (*token.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pair == nil {
		return nil, store.ErrNotFound
	}
	// Return a copy to prevent external modifications
	p := *s.pair
	return &p, nil
}

func (s *InMemoryStore) Save(_ context.Context, pair *token.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *pair
	s.pair = &p
	s.saves++
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = nil
	s.clears++
	return nil
}

// Saves reports how many times Save was called
func (s *InMemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
