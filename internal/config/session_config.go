package config

import "time"

type SessionConfig interface {
	GetRefreshInterval() time.Duration
	GetRequestTimeout() time.Duration
	GetExpiryLeeway() time.Duration
	GetRefreshTokenLength() int
	GetStubAccessTokenExpiry() time.Duration
	GetStubRefreshTokenExpiry() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetRefreshInterval() time.Duration {
	return 4 * time.Minute
}

func (Session) GetRequestTimeout() time.Duration {
	return 10 * time.Second
}

func (Session) GetExpiryLeeway() time.Duration {
	return 0
}

func (Session) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

// GetStubAccessTokenExpiry is the access token lifetime issued by the development stub backend
func (Session) GetStubAccessTokenExpiry() time.Duration {
	return 5 * time.Minute
}

func (Session) GetStubRefreshTokenExpiry() time.Duration {
	return 24 * time.Hour
}
