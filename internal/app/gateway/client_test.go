package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibecheck/internal/app/mock"
	"vibecheck/internal/pkg/metrics"
)

func newServerClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewWithTransport(Config{BaseURL: srv.URL + "/api", Timeout: timeout}, http.DefaultTransport, nil)
	require.NoError(t, err)
	return c, srv
}

func TestSend_AttachesBearerWhenTokenPresent(t *testing.T) {
	var gotAuth, gotPath string
	c, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}, 0)

	_, err := c.WithTokenSource(NewStaticToken("tok-123")).Send(context.Background(), &Request{Method: http.MethodGet, URL: "/users/me"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "/api/users/me", gotPath)

	_, err = c.Send(context.Background(), &Request{Method: http.MethodGet, URL: "users/me"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "no token source means no Authorization header")

	_, err = c.WithTokenSource(NewStaticToken("")).Send(context.Background(), &Request{URL: "/users/me"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestSend_NoBearerForForeignOrigin(t *testing.T) {
	var gotAuth string
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer foreign.Close()

	c, err := NewWithTransport(Config{BaseURL: "http://api.invalid"}, http.DefaultTransport, nil)
	require.NoError(t, err)

	_, err = c.WithTokenSource(NewStaticToken("secret")).Send(context.Background(), &Request{URL: foreign.URL + "/geocode"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestSend_HTTPErrorCarriesStatusAndDetail(t *testing.T) {
	c, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Email already registered"}`)
	}, 0)

	res, err := c.Send(context.Background(), &Request{Method: http.MethodPost, URL: "/users/"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "Email already registered", httpErr.Detail())
	require.NotNil(t, res)
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestHTTPError_Detail(t *testing.T) {
	assert.Equal(t, "field required; value is not a valid email",
		(&HTTPError{Status: 422, Body: []byte(`{"detail":[{"msg":"field required"},{"msg":"value is not a valid email"}]}`)}).Detail())
	assert.Equal(t, "Mock endpoint not found",
		(&HTTPError{Status: 404, Body: []byte(`{"message":"Mock endpoint not found"}`)}).Detail())
	assert.Equal(t, "Bad Gateway", (&HTTPError{Status: 502, Body: []byte(`<html>`)}).Detail())
}

func TestSend_TimeoutError(t *testing.T) {
	release := make(chan struct{})
	c, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := c.Send(context.Background(), &Request{URL: "/place/analyze", Method: http.MethodPost})
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
}

func TestSend_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewWithTransport(Config{BaseURL: addr}, http.DefaultTransport, nil)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), &Request{URL: "/users/me"})
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)

	var timeoutErr *TimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
}

func TestSend_RecordsOutcomeMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c, err := NewWithTransport(Config{BaseURL: srv.URL}, http.DefaultTransport, m)
	require.NoError(t, err)

	_, _ = c.Send(context.Background(), &Request{URL: "/ok"})
	_, _ = c.Send(context.Background(), &Request{URL: "/fail"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayRequests.WithLabelValues("GET", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayRequests.WithLabelValues("GET", "http_error")))
}

func TestNew_MockModeAnswersFromFixtures(t *testing.T) {
	c, err := New(Config{BaseURL: "http://api.invalid", MockMode: true, MockSigningKey: "k"}, nil)
	require.NoError(t, err)

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	form := url.Values{"username": {"test@example.com"}, "password": {mock.FixturePassword}}
	require.NoError(t, c.PostForm(context.Background(), "/users/token", form, &token))
	assert.Equal(t, "bearer", token.TokenType)

	var me struct {
		Email string `json:"email"`
	}
	require.NoError(t, c.WithTokenSource(NewStaticToken(token.AccessToken)).GetJSON(context.Background(), "/users/me", &me))
	assert.Equal(t, "test@example.com", me.Email)

	err = c.GetJSON(context.Background(), "/admin/stats", nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "/api"}, nil)
	assert.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	c, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}, 0)

	var out struct {
		Acoustics int `json:"acoustics"`
	}
	require.NoError(t, c.PutJSON(context.Background(), "/users/preferences", map[string]int{"acoustics": 40}, &out))
	assert.Equal(t, 40, out.Acoustics)
}
