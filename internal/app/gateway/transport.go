package gateway

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// TokenSource yields the bearer credential for outbound calls.
type TokenSource interface {
	Token() (string, bool)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, bool)

func (f TokenFunc) Token() (string, bool) { return f() }

// StaticToken is a TokenSource holding a replaceable token.
// Background writers use it so a refreshed cookie reaches requests issued after the HTTP call ended.
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

// NewStaticToken returns a StaticToken holding token.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

// Set replaces the held token.
func (s *StaticToken) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *StaticToken) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

type noToken struct{}

func (noToken) Token() (string, bool) { return "", false }

// NewRealTransport returns the transport used when mock mode is off.
func NewRealTransport() http.RoundTripper {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
