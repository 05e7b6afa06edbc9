package session

import (
	"net/http"
	"sync"
	"time"

	"vibecheck/internal/pkg/auth/jwt"
)

// CookieName is the cookie holding the bearer token.
const CookieName = "access_token"

// CookieStore holds the session token. It also serves as the gateway's token source.
type CookieStore interface {
	Token() (string, bool)
	SetToken(token string)
	ClearToken()
}

// HTTPCookies binds the session cookie to one request and its response.
// Writes are visible to later reads within the same request.
type HTTPCookies struct {
	w      http.ResponseWriter
	secure bool

	mu    sync.Mutex
	token string
}

// NewHTTPCookies reads the current token from r. Cookies written through it are marked
// Secure when secure is set.
func NewHTTPCookies(w http.ResponseWriter, r *http.Request, secure bool) *HTTPCookies {
	c := &HTTPCookies{w: w, secure: secure}
	if cookie, err := r.Cookie(CookieName); err == nil {
		c.token = cookie.Value
	}
	return c
}

func (c *HTTPCookies) Token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.token != ""
}

// SetToken stores token and writes the cookie. The cookie expires with the token when its
// `exp` claim is readable.
func (c *HTTPCookies) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	cookie := c.cookie(token)
	if claims, err := jwt.Decode(token); err == nil && claims.ExpiresAt > 0 {
		cookie.Expires = time.Unix(claims.ExpiresAt, 0)
	}
	http.SetCookie(c.w, cookie)
}

// ClearToken forgets the token and expires the cookie in the browser.
func (c *HTTPCookies) ClearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	cookie := c.cookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(c.w, cookie)
}

func (c *HTTPCookies) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// MemoryCookies is an in-process CookieStore.
type MemoryCookies struct {
	mu    sync.Mutex
	token string
}

// NewMemoryCookies returns a store holding token, which may be empty.
func NewMemoryCookies(token string) *MemoryCookies {
	return &MemoryCookies{token: token}
}

func (c *MemoryCookies) Token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.token != ""
}

func (c *MemoryCookies) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *MemoryCookies) ClearToken() {
	c.SetToken("")
}
