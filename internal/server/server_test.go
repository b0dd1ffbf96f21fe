package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/apideck/internal/config"
	"github.com/waabox/apideck/internal/server"
)

// fakeBackend is the API the app server forwards to.
type fakeBackend struct {
	mu          sync.Mutex
	logoutAuth  []string
	loginStatus int
	loginBody   string
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.loginStatus)
		io.WriteString(w, b.loginBody)
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.logoutAuth = append(b.logoutAuth, r.Header.Get("Authorization"))
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"message":"bye"}`)
	})
	return mux
}

func (b *fakeBackend) logoutCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.logoutAuth...)
}

func newServer(t *testing.T, backend *fakeBackend) *server.Server {
	t.Helper()
	api := httptest.NewServer(backend.handler())
	t.Cleanup(api.Close)

	var cfg config.Config
	cfg.API.Endpoint = api.URL
	return server.New(cfg, zerolog.Nop())
}

func cookieValue(resp *http.Response, name string) (string, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func TestLogin_SetsCookiesAndRelaysPayload(t *testing.T) {
	backend := &fakeBackend{
		loginStatus: http.StatusOK,
		loginBody:   `{"message":"ok","data":{"accessToken":"A","refreshToken":"B"}}`,
	}
	srv := newServer(t, backend)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.c","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, backend.loginBody, string(body))

	access, ok := cookieValue(resp, "accessToken")
	assert.True(t, ok)
	assert.Equal(t, "A", access)
	refresh, ok := cookieValue(resp, "refreshToken")
	assert.True(t, ok)
	assert.Equal(t, "B", refresh)
}

func TestLogin_RelaysValidationFailure(t *testing.T) {
	backend := &fakeBackend{
		loginStatus: http.StatusUnprocessableEntity,
		loginBody:   `{"message":"invalid","errors":[{"field":"email","message":"required"}]}`,
	}
	srv := newServer(t, backend)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, backend.loginBody, string(body))
	_, ok := cookieValue(resp, "accessToken")
	assert.False(t, ok)
}

func TestLogin_RejectsNonJSONBody(t *testing.T) {
	srv := newServer(t, &fakeBackend{loginStatus: http.StatusOK, loginBody: `{}`})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`email=a`))
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogout_CallsBackendAndClearsCookies(t *testing.T) {
	backend := &fakeBackend{}
	srv := newServer(t, backend)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer A")
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Bearer A"}, backend.logoutCalls())
	value, ok := cookieValue(resp, "accessToken")
	assert.True(t, ok, "expected an expiring accessToken cookie")
	assert.Empty(t, value)
}

func TestLogout_WithoutTokenSkipsBackend(t *testing.T) {
	backend := &fakeBackend{}
	srv := newServer(t, backend)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, backend.logoutCalls())
}

func TestLogoutRoute_MatchingTokenRedirectsToLogin(t *testing.T) {
	backend := &fakeBackend{}
	srv := newServer(t, backend)

	req := httptest.NewRequest(http.MethodGet, "/logout?accessToken=A", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "A"})
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, []string{"Bearer A"}, backend.logoutCalls())
}

func TestLogoutRoute_ForeignTokenIsIgnored(t *testing.T) {
	backend := &fakeBackend{}
	srv := newServer(t, backend)

	req := httptest.NewRequest(http.MethodGet, "/logout?accessToken=someone-else", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "A"})
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Empty(t, backend.logoutCalls())
}

func TestLogoutRoute_NoTokenStillRedirects(t *testing.T) {
	backend := &fakeBackend{}
	srv := newServer(t, backend)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/logout", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Empty(t, backend.logoutCalls())
}

func TestLogoutRoute_WithoutQueryEndsCookieSession(t *testing.T) {
	backend := &fakeBackend{}
	srv := newServer(t, backend)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "A"})
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, []string{"Bearer A"}, backend.logoutCalls())
	value, ok := cookieValue(resp, "accessToken")
	assert.True(t, ok)
	assert.Empty(t, value)
}

func TestRequestLog_ReportsErrorStatus(t *testing.T) {
	api := httptest.NewServer((&fakeBackend{}).handler())
	defer api.Close()

	var logs bytes.Buffer
	var cfg config.Config
	cfg.API.Endpoint = api.URL
	srv := server.New(cfg, zerolog.New(&logs))

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var entry struct {
		Path   string `json:"path"`
		Status int    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "/missing", entry.Path)
	assert.Equal(t, http.StatusNotFound, entry.Status)
}

func TestLoginPage(t *testing.T) {
	srv := newServer(t, &fakeBackend{})
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
