package session

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// TokenSource returns an oauth2.TokenSource over the current session, for consumers
// that build their API client with oauth2.NewClient. An access token that has
// expired locally triggers one Refresh using ctx before giving up.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, m: m}
}

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	access, identity, err := ts.m.current()
	if errors.Is(err, ErrTokenExpired) {
		if err := ts.m.Refresh(ts.ctx); err != nil {
			return nil, err
		}
		access, identity, err = ts.m.current()
	}
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      identity.ExpiresAt,
	}, nil
}
