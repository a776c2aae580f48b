package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/notifiq-session/backend"
	"github.com/jrsteele09/notifiq-session/internal/config"
	"github.com/jrsteele09/notifiq-session/server"
	"github.com/jrsteele09/notifiq-session/session"
	"github.com/jrsteele09/notifiq-session/store/memstore"
	"github.com/jrsteele09/notifiq-session/stubbackend"
	"github.com/jrsteele09/notifiq-session/token"
	refreshrepofake "github.com/jrsteele09/notifiq-session/token/refresh/repofake"
	"github.com/jrsteele09/notifiq-session/users"
	fakeuserrepo "github.com/jrsteele09/notifiq-session/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	agent   *server.Server
	manager *session.Manager
	stub    *stubbackend.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("AGENT_ALLOWED_ORIGINS", "http://localhost:5173")

	stub := stubbackend.New(fakeuserrepo.NewFakeUserRepo(), refreshrepofake.NewFakeRefreshTokenRepo(),
		token.NewHMACSigner("test-secret"), config.Session{}, stubbackend.WithLogger(zerolog.Nop()))
	require.NoError(t, stub.AddUser(&users.User{ID: "alice", Email: "alice@example.com", FirstName: "Alice", Groups: []users.GroupType{users.GroupCustomers}}, "correct-pw"))
	require.NoError(t, stub.AddUser(&users.User{ID: "tom", Email: "tom@example.com", FirstName: "Tom", Groups: []users.GroupType{users.GroupITStaff}}, "staff-pw"))
	backendSrv := httptest.NewServer(stub)
	t.Cleanup(backendSrv.Close)

	reg := prometheus.NewRegistry()
	manager := session.NewManager(
		backend.New(backendSrv.URL, backend.WithLogger(zerolog.Nop())),
		memstore.New(),
		session.WithLogger(zerolog.Nop()),
		session.WithMetrics(session.NewMetrics(reg)),
	)
	manager.Start(context.Background())

	return &fixture{
		agent:   server.New(config.New(), manager, server.WithLogger(zerolog.Nop()), server.WithGatherer(reg)),
		manager: manager,
		stub:    stub,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.agent.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestSession_LoggedOut(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, server.RouteSession, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, session.LoginPath, decode(t, rec)["redirect"])
}

func TestLoginAndSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, server.RouteSessionLogin, `{"identifier":"alice@example.com","secret":"correct-pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "logged_in", body["state"])
	require.Equal(t, "Alice", body["display_name"])
	require.Equal(t, false, body["is_it_staff"])

	// Login answers with the same document GET /session serves
	rec = f.do(t, http.MethodGet, server.RouteSession, "")
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode(t, rec)
	require.Equal(t, body, current)
	identity := current["identity"].(map[string]any)
	require.Equal(t, "alice", identity["user_id"])
}

func TestLogin_Rejected(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, server.RouteSessionLogin, `{"identifier":"alice@example.com","secret":"wrong-pw"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "invalid_credentials", body["error"])
	require.Equal(t, server.LoginFailedMessage, body["error_description"])
	require.Equal(t, session.StateLoggedOut, f.manager.State())

	rec = f.do(t, http.MethodPost, server.RouteSessionLogin, `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), "alice@example.com", "correct-pw"))

	rec := f.do(t, http.MethodPost, server.RouteSessionLogout, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, session.StateLoggedOut, f.manager.State())

	rec = f.do(t, http.MethodPost, server.RouteSessionLogout, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, server.RouteSessionRefresh, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "no_refresh_token", decode(t, rec)["error"])

	require.NoError(t, f.manager.Login(context.Background(), "alice@example.com", "correct-pw"))
	rec = f.do(t, http.MethodPost, server.RouteSessionRefresh, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.EqualValues(t, 1, f.stub.RefreshCalls())
}

func TestToken_RequiresSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, server.RouteSessionToken, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, f.manager.Login(context.Background(), "alice@example.com", "correct-pw"))
	rec = f.do(t, http.MethodGet, server.RouteSessionToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	access, err := f.manager.AccessToken()
	require.NoError(t, err)
	body := decode(t, rec)
	require.Equal(t, access, body["access_token"])
	require.Equal(t, "Bearer", body["token_type"])
}

func TestStaff_Guard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodGet, server.RouteSessionStaff, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, session.LoginPath, decode(t, rec)["redirect"])

	require.NoError(t, f.manager.Login(ctx, "alice@example.com", "correct-pw"))
	rec = f.do(t, http.MethodGet, server.RouteSessionStaff, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, session.TicketsPath, decode(t, rec)["redirect"])

	require.NoError(t, f.manager.Login(ctx, "tom@example.com", "staff-pw"))
	rec = f.do(t, http.MethodGet, server.RouteSessionStaff, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode(t, rec)["is_it_staff"])
}

func TestCors(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteSessionLogin, nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	f.agent.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, server.RouteSession, nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	f.agent.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), "alice@example.com", "correct-pw"))

	rec := f.do(t, http.MethodGet, server.RouteMetrics, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `notifiq_session_logins_total{result="ok"} 1`)
	require.Contains(t, rec.Body.String(), "notifiq_session_logged_in 1")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, server.RouteHealth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "logged_out", decode(t, rec)["state"])
}

func TestRecoverMiddleware(t *testing.T) {
	f := newFixture(t)
	handler := server.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, f.agent.RecoverMiddleware)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
