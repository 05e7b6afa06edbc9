package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibecheck/internal/app/gateway"
	"vibecheck/internal/app/mock"
	"vibecheck/internal/app/session"
	"vibecheck/internal/app/user"
	"vibecheck/internal/pkg/auth/jwt"
)

func token(t *testing.T, subject, role string, ttl time.Duration) string {
	t.Helper()
	s, err := jwt.GenerateToken(jwt.NewClaims(subject, role), "k", ttl)
	require.NoError(t, err)
	return s
}

var protected = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("admin dashboard"))
})

func TestEdgeCheck(t *testing.T) {
	assert.Equal(t, Decision{Outcome: Redirect, Location: session.PathLogin}, EdgeCheck("", false))
	assert.Equal(t, Decision{Outcome: Redirect, Location: session.PathLogin}, EdgeCheck("not-a-jwt", true))
	assert.Equal(t, Decision{Outcome: Redirect, Location: session.PathLogin}, EdgeCheck(token(t, "a@example.com", "ADMIN", -time.Minute), true))

	// No role check at the edge.
	assert.Equal(t, Decision{Outcome: Allow}, EdgeCheck(token(t, "a@example.com", "USER", time.Hour), true))
}

func TestRenderCheck(t *testing.T) {
	assert.Equal(t, Pending, RenderCheck(session.State{}).Outcome)
	assert.Equal(t, Decision{Outcome: Redirect, Location: session.PathLogin}, RenderCheck(session.State{Status: session.StatusAnonymous}))

	for _, role := range []user.Role{user.RoleUser, user.RoleService, "", "admin-ish"} {
		state := session.State{Status: session.StatusAuthenticated, Identity: &user.Identity{Email: "x@example.com", Role: role}}
		assert.Equal(t, Decision{Outcome: Redirect, Location: session.PathProfile}, RenderCheck(state), "role %q", role)
	}

	admin := session.State{Status: session.StatusAuthenticated, Identity: &user.Identity{Role: user.RoleAdmin}}
	assert.Equal(t, Decision{Outcome: Allow}, RenderCheck(admin))
}

func TestEdgeMiddleware(t *testing.T) {
	h := Edge(protected)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, session.PathLogin, rec.Header().Get("Location"))
	assert.NotContains(t, rec.Body.String(), "admin dashboard")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token(t, "u@example.com", "USER", time.Hour)})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// newService resolves identities against the mock service, which accepts tokens signed with "k".
func newService(t *testing.T) *session.Service {
	t.Helper()
	client, err := gateway.New(gateway.Config{BaseURL: "http://api.test", MockMode: true, MockSigningKey: "k"}, nil)
	require.NoError(t, err)
	return session.NewService(nil, client, nil, false)
}

func TestProtectedPath_NonAdminRolesResolveToProfile(t *testing.T) {
	h := Edge(newService(t).Middleware(Render(time.Second)(protected)))

	serve := func(tok string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	// The role claim is ignored; only the service record decides.
	for _, role := range []string{"USER", "SERVICE", "", "ADMIN"} {
		rec := serve(token(t, "u@example.com", role, time.Hour))
		assert.Equal(t, http.StatusSeeOther, rec.Code, "role %q", role)
		assert.Equal(t, session.PathProfile, rec.Header().Get("Location"), "role %q", role)
		assert.NotContains(t, rec.Body.String(), "admin dashboard")
	}

	rec := serve(token(t, mock.AdminEmail, "USER", time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin dashboard", rec.Body.String())
}

func TestProtectedPath_ForgedAdminTokenGoesToLogin(t *testing.T) {
	h := Edge(newService(t).Middleware(Render(time.Second)(protected)))

	forged, err := jwt.GenerateToken(jwt.NewClaims(mock.AdminEmail, "ADMIN"), "attacker-key", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: forged})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, session.PathLogin, rec.Header().Get("Location"))
	assert.NotContains(t, rec.Body.String(), "admin dashboard")
}

func TestRenderMiddleware_PendingShowsPlaceholder(t *testing.T) {
	store := session.NewStore(session.NewMemoryCookies(""), nil, mustClient(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req = req.WithContext(session.NewContext(context.Background(), store))
	rec := httptest.NewRecorder()

	Render(10 * time.Millisecond)(protected).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Refresh"))
	assert.Contains(t, rec.Body.String(), "Verifying access")
	assert.NotContains(t, rec.Body.String(), "admin dashboard")
}

func TestRenderMiddleware_WithoutSessionIsPending(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(0)(protected).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Contains(t, rec.Body.String(), "Verifying access")
}

func mustClient(t *testing.T) *gateway.Client {
	t.Helper()
	client, err := gateway.NewWithTransport(gateway.Config{BaseURL: "http://api.invalid"}, http.DefaultTransport, nil)
	require.NoError(t, err)
	return client
}
