package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibecheck/internal/app/gateway"
	"vibecheck/internal/app/mock"
	"vibecheck/internal/app/prefsync"
	"vibecheck/internal/app/session"
	"vibecheck/internal/app/storage"
	"vibecheck/internal/configs"
	"vibecheck/internal/pkg/errs"
	"vibecheck/internal/pkg/metrics"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	server *httptest.Server
	client *http.Client
	deps   *AppDeps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment:    "development",
		Port:           0,
		APIBaseURL:     "http://api.test",
		RequestTimeout: 5 * time.Second,
		MockMode:       true,
		MockSigningKey: "test-key",
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	gw, err := gateway.New(gateway.Config{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.RequestTimeout,
		MockMode:       true,
		MockSigningKey: cfg.MockSigningKey,
	}, m)
	require.NoError(t, err)

	store := storage.NewMemoryStorage(0)
	manager := prefsync.NewManager(func(tokens gateway.TokenSource) prefsync.Remote {
		return prefsync.NewGatewayRemote(gw, tokens)
	}, prefsync.Options{QuietPeriod: 100 * time.Millisecond, SavedWindow: 50 * time.Millisecond, Metrics: m}, time.Minute)
	t.Cleanup(manager.Shutdown)

	deps := &AppDeps{
		Config:      cfg,
		Gateway:     gw,
		Sessions:    session.NewService(session.NewIdentityCache(store), gw, m, false),
		Preferences: manager,
		Storage:     store,
		Metrics:     m,
		Gatherer:    registry,
	}

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{server: srv, client: client, deps: deps}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	r, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	res, err := e.client.Do(r)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var env envelope
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	} else {
		env.Message = string(raw)
	}

	return res, env
}

func (e *testEnv) login(t *testing.T, email string) {
	t.Helper()

	res, env := e.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": mock.FixturePassword,
	})
	require.Equal(t, http.StatusOK, res.StatusCode, env.Message)
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()

	u, err := url.Parse(e.server.URL)
	require.NoError(t, err)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	return ""
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	res, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 0, body.Code)
	assert.JSONEq(t, `{"status":"ok","service":"VibeCheck Web"}`, string(body.Data))
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	res, body := env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "someone@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, errs.ErrInvalidCredentials, body.Code)
	assert.Empty(t, res.Header.Values("Set-Cookie"))
	assert.Empty(t, env.token(t))
}

func TestLogin_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	res, body := env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "not-an-email",
		"password": mock.FixturePassword,
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, errs.ErrInvalidParams, body.Code)
}

func TestLogin_SetsCookieAndSession(t *testing.T) {
	env := newTestEnv(t)

	res, body := env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": mock.FixturePassword,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var result struct {
		Redirect string `json:"redirect"`
		User     struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, session.PathProfile, result.Redirect)
	assert.Equal(t, "jane@example.com", result.User.Email)
	assert.NotEmpty(t, env.token(t))

	res, body = env.do(t, http.MethodGet, "/auth/session", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var view struct {
		Status         string `json:"status"`
		CanAccessAdmin bool   `json:"canAccessAdmin"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &view))
	assert.Equal(t, "authenticated", view.Status)
	assert.False(t, view.CanAccessAdmin)

	res, _ = env.do(t, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, session.PathProfile, res.Header.Get("Location"))
}

func TestLogout_ClearsSession(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "jane@example.com")

	res, _ := env.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, env.token(t))

	res, _ = env.do(t, http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, session.PathLogin, res.Header.Get("Location"))
}

func TestRegister_TakenEmail(t *testing.T) {
	env := newTestEnv(t)

	res, body := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"first_name": "Taken",
		"email":      mock.TakenEmail,
		"password":   mock.FixturePassword,
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, errs.ErrRegistrationFailed, body.Code)
	assert.Equal(t, "Email already registered", body.Message)
	assert.Empty(t, env.token(t))
}

func TestProfilePage(t *testing.T) {
	env := newTestEnv(t)

	res, _ := env.do(t, http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)

	env.login(t, "jane@example.com")

	res, body := env.do(t, http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body.Message, "jane@example.com")
	assert.NotContains(t, body.Message, "Admin dashboard")
}

func TestAdmin_Guards(t *testing.T) {
	t.Run("no cookie goes to login", func(t *testing.T) {
		env := newTestEnv(t)

		res, _ := env.do(t, http.MethodGet, "/admin", nil)
		assert.Equal(t, http.StatusSeeOther, res.StatusCode)
		assert.Equal(t, session.PathLogin, res.Header.Get("Location"))
	})

	t.Run("user goes to profile", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, "jane@example.com")

		res, _ := env.do(t, http.MethodGet, "/admin", nil)
		assert.Equal(t, http.StatusSeeOther, res.StatusCode)
		assert.Equal(t, session.PathProfile, res.Header.Get("Location"))

		res, _ = env.do(t, http.MethodGet, "/admin/api/stats", nil)
		assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	})

	t.Run("admin sees the dashboard", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, mock.AdminEmail)

		res, body := env.do(t, http.MethodGet, "/admin", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, body.Message, "Admin dashboard")

		res, body = env.do(t, http.MethodGet, "/profile", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, body.Message, "Admin dashboard")
	})

	t.Run("admin api reaches the service", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, mock.AdminEmail)

		res, body := env.do(t, http.MethodGet, "/admin/api/stats", nil)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		assert.Equal(t, errs.ErrUpstreamRejected, body.Code)
		assert.Equal(t, "Mock endpoint not found", body.Message)
	})
}

func TestPlace_Forwarding(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "jane@example.com")

	res, body := env.do(t, http.MethodPost, "/api/place/analyze", map[string]string{"query": "Blue Door Cafe"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var analysis struct {
		ID        string `json:"id"`
		PlaceName string `json:"place_name"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &analysis))
	assert.Equal(t, "Blue Door Cafe", analysis.PlaceName)
	assert.NotEmpty(t, analysis.ID)

	res, _ = env.do(t, http.MethodPost, "/api/place/compare", map[string]any{})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = env.do(t, http.MethodPost, "/api/place/unknown", map[string]any{})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestPreferences_PatchAndFlush(t *testing.T) {
	env := newTestEnv(t)

	res, body := env.do(t, http.MethodGet, "/api/preferences", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, errs.ErrUnauthorized, body.Code)

	env.login(t, "jane@example.com")

	res, body = env.do(t, http.MethodGet, "/api/preferences", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var snap prefsync.Snapshot
	require.NoError(t, json.Unmarshal(body.Data, &snap))
	assert.True(t, snap.Loaded)
	assert.Equal(t, 50, snap.Preferences.Budget)

	res, body = env.do(t, http.MethodPatch, "/api/preferences", map[string]int{"budget": 150})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, errs.ErrPreferenceOutOfRange, body.Code)

	res, body = env.do(t, http.MethodPatch, "/api/preferences", map[string]int{"budget": 40})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(body.Data, &snap))
	assert.Equal(t, 40, snap.Preferences.Budget)

	res, _ = env.do(t, http.MethodPost, "/api/preferences/flush", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	assert.Eventually(t, func() bool {
		_, body := env.do(t, http.MethodGet, "/api/preferences", nil)
		var snap prefsync.Snapshot
		if err := json.Unmarshal(body.Data, &snap); err != nil {
			return false
		}
		return snap.Phase == "idle" && snap.Preferences.Budget == 40 && snap.LastError == ""
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNavigator(t *testing.T) {
	env := newTestEnv(t)

	res, _ := env.do(t, http.MethodGet, "/api/ui/navigator", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	env.login(t, "jane@example.com")

	res, body := env.do(t, http.MethodGet, "/api/ui/navigator", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"navigator":""}`, string(body.Data))

	res, body = env.do(t, http.MethodPut, "/api/ui/navigator", map[string]string{"navigator": "waze"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body = env.do(t, http.MethodGet, "/api/ui/navigator", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"navigator":"waze"}`, string(body.Data))

	res, body = env.do(t, http.MethodPut, "/api/ui/navigator", map[string]string{"navigator": "  "})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, errs.ErrInvalidParams, body.Code)
}

func TestWebSocket_LiveEdits(t *testing.T) {
	env := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/preferences"

	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	env.login(t, "jane@example.com")

	header := http.Header{"Cookie": {fmt.Sprintf("%s=%s", session.CookieName, env.token(t))}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	type message struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	readSnapshot := func() prefsync.Snapshot {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg message
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "SNAPSHOT", msg.Type, string(msg.Payload))
		var snap prefsync.Snapshot
		require.NoError(t, json.Unmarshal(msg.Payload, &snap))
		return snap
	}

	first := readSnapshot()
	assert.True(t, first.Loaded)
	assert.Equal(t, 50, first.Preferences.Acoustics)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "SET", "field": "acoustics", "value": 20}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := readSnapshot()
		if snap.Preferences.Acoustics == 20 && snap.Indicator == prefsync.IndicatorSaved {
			return
		}
	}
	t.Fatal("never observed the saved edit")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "jane@example.com")

	res, body := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body.Message, "vibecheck_session_logins_total")
	assert.Contains(t, body.Message, "vibecheck_gateway_requests_total")
}

func TestToCustomError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		status int
	}{
		{"credentials", session.ErrInvalidCredentials, errs.ErrInvalidCredentials, http.StatusUnauthorized},
		{"registration", &session.RegistrationError{Status: http.StatusBadRequest, Detail: "nope"}, errs.ErrRegistrationFailed, http.StatusBadRequest},
		{"timeout", &gateway.TimeoutError{Err: errors.New("deadline")}, errs.ErrUpstreamTimeout, http.StatusGatewayTimeout},
		{"network", &gateway.NetworkError{Err: errors.New("refused")}, errs.ErrUpstreamUnavailable, http.StatusBadGateway},
		{"http", &gateway.HTTPError{Status: http.StatusForbidden, Body: []byte(`{"detail":"Admins only"}`)}, errs.ErrUpstreamRejected, http.StatusForbidden},
		{"out of range", prefsync.ErrOutOfRange, errs.ErrPreferenceOutOfRange, http.StatusBadRequest},
		{"custom", errs.NewError(errs.ErrUnauthorized), errs.ErrUnauthorized, http.StatusUnauthorized},
		{"other", errors.New("boom"), errs.ErrUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toCustomError(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.status, got.Status)
		})
	}

	assert.Equal(t, "Admins only", toCustomError(&gateway.HTTPError{Status: http.StatusForbidden, Body: []byte(`{"detail":"Admins only"}`)}).Message)
}
