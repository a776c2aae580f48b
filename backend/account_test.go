package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jrsteele09/notifiq-session/backend"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	var got backend.Registration
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, backend.DefaultRegisterPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"username":"carol","email":"carol@example.com"}`))
	})

	reg := backend.Registration{Username: "carol", Email: "carol@example.com", Password: "s3cret-pw"}
	require.NoError(t, client.Register(context.Background(), reg))
	require.Equal(t, reg, got)
}

func TestRegister_FieldErrors(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"username":["A user with that username already exists."],"email":["Enter a valid email address."]}`))
	})

	err := client.Register(context.Background(), backend.Registration{Username: "carol", Email: "nope", Password: "pw"})
	require.ErrorIs(t, err, backend.ErrRegistrationRejected)

	var validationErr *backend.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, []string{"Enter a valid email address."}, validationErr.Fields["email"])
	require.Equal(t, "Enter a valid email address. A user with that username already exists.", validationErr.Message())
}

func TestRegister_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"detail only", http.StatusBadRequest, `{"detail":"Registration is closed"}`, backend.ErrRegistrationRejected},
		{"no body", http.StatusConflict, ``, backend.ErrRegistrationRejected},
		{"server error", http.StatusInternalServerError, `oops`, backend.ErrServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.Register(context.Background(), backend.Registration{Username: "carol", Email: "carol@example.com", Password: "pw"})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifyEmail(t *testing.T) {
	t.Run("verified", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodGet, r.Method)
			require.Equal(t, "/api/verify-email/Y2Fyb2w/tok-1/", r.URL.Path)
			require.Empty(t, r.Header.Get("Content-Type"))
			_, _ = w.Write([]byte(`{"message":"Email verified"}`))
		})

		msg, err := client.VerifyEmail(context.Background(), "Y2Fyb2w", "tok-1")
		require.NoError(t, err)
		require.Equal(t, "Email verified", msg)
	})

	t.Run("verified without message", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})

		msg, err := client.VerifyEmail(context.Background(), "Y2Fyb2w", "tok-1")
		require.NoError(t, err)
		require.Equal(t, "Email successfully verified! You can now log in.", msg)
	})

	t.Run("invalid link", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Activation link is invalid!"}`))
		})

		_, err := client.VerifyEmail(context.Background(), "Y2Fyb2w", "stale")
		require.ErrorIs(t, err, backend.ErrVerificationFailed)
		var statusErr *backend.StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, "Activation link is invalid!", statusErr.Detail)
	})

	t.Run("empty link makes no request", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("unexpected request")
		})

		_, err := client.VerifyEmail(context.Background(), "", "tok-1")
		require.ErrorIs(t, err, backend.ErrVerificationFailed)
	})

	t.Run("server error", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.VerifyEmail(context.Background(), "Y2Fyb2w", "tok-1")
		require.ErrorIs(t, err, backend.ErrServer)
	})
}
