package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/notifiq-session/backend"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.New(srv.URL, backend.WithLogger(zerolog.Nop()))
}

func TestObtainPair(t *testing.T) {
	var got map[string]string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, backend.DefaultObtainPath, r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"access":"a1","refresh":"r1"}`))
	})

	pair, err := client.ObtainPair(context.Background(), "alice@example.com", "correct-pw")
	require.NoError(t, err)
	require.Equal(t, "a1", pair.Access)
	require.Equal(t, "r1", pair.Refresh)
	require.Equal(t, map[string]string{"username": "alice@example.com", "password": "correct-pw"}, got)
}

func TestObtainPair_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"No active account found with the given credentials"}`, backend.ErrInvalidCredentials},
		{"bad request", http.StatusBadRequest, `{"password":["This field is required."]}`, backend.ErrInvalidCredentials},
		{"server error", http.StatusInternalServerError, `oops`, backend.ErrServer},
		{"bad gateway", http.StatusBadGateway, ``, backend.ErrServer},
		{"incomplete pair", http.StatusOK, `{"access":"a1"}`, backend.ErrServer},
		{"undecodable", http.StatusOK, `<html>`, backend.ErrServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			pair, err := client.ObtainPair(context.Background(), "alice@example.com", "pw")
			require.Nil(t, pair)
			require.ErrorIs(t, err, tt.want)

			var statusErr *backend.StatusError
			require.ErrorAs(t, err, &statusErr)
			require.Equal(t, tt.status, statusErr.StatusCode)
		})
	}
}

func TestObtainPair_DetailIsKept(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"No active account"}`))
	})

	_, err := client.ObtainPair(context.Background(), "alice@example.com", "wrong-pw")
	var statusErr *backend.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "No active account", statusErr.Detail)
	require.Contains(t, err.Error(), "status 401")
}

func TestObtainPair_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := backend.New(url, backend.WithLogger(zerolog.Nop()))
	_, err := client.ObtainPair(context.Background(), "alice@example.com", "pw")
	require.ErrorIs(t, err, backend.ErrNetwork)
	require.NotErrorIs(t, err, backend.ErrInvalidCredentials)
}

func TestRefreshPair(t *testing.T) {
	t.Run("rotated", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, backend.DefaultRefreshPath, r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "r1", body["refresh"])
			_, _ = w.Write([]byte(`{"access":"a2","refresh":"r2"}`))
		})

		pair, err := client.RefreshPair(context.Background(), "r1")
		require.NoError(t, err)
		require.Equal(t, "a2", pair.Access)
		require.Equal(t, "r2", pair.Refresh)
	})

	t.Run("not rotated keeps refresh token", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access":"a2"}`))
		})

		pair, err := client.RefreshPair(context.Background(), "r1")
		require.NoError(t, err)
		require.Equal(t, "a2", pair.Access)
		require.Equal(t, "r1", pair.Refresh)
	})

	t.Run("rejected", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired","code":"token_not_valid"}`))
		})

		_, err := client.RefreshPair(context.Background(), "r1")
		require.ErrorIs(t, err, backend.ErrInvalidRefreshToken)
	})

	t.Run("missing access", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})

		_, err := client.RefreshPair(context.Background(), "r1")
		require.ErrorIs(t, err, backend.ErrServer)
	})
}

func TestCustomPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/jwt/create", r.URL.Path)
		require.Equal(t, "notifiq-cli/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"access":"a1","refresh":"r1"}`))
	}))
	t.Cleanup(srv.Close)

	client := backend.New(srv.URL,
		backend.WithPaths("/auth/jwt/create", "/auth/jwt/refresh"),
		backend.WithUserAgent("notifiq-cli/1.0"),
		backend.WithHTTPClient(srv.Client()),
		backend.WithLogger(zerolog.Nop()),
	)
	_, err := client.ObtainPair(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
}
