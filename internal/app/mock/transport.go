/*
Package mock answers VibeCheck API requests from a static fixture table so the web gateway runs
end to end without a live backend.

Transport is an http.RoundTripper placed in front of the real transport. Requests addressed to
the configured API origin are resolved locally after a fixed artificial delay; every other
request is forwarded untouched, so third-party calls are never mocked.
*/
package mock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vibecheck/internal/pkg/logx"
	"vibecheck/internal/pkg/metrics"
	"vibecheck/internal/pkg/randx"
)

const (
	// DefaultLatency is the artificial delay applied before answering.
	DefaultLatency = 800 * time.Millisecond

	// DefaultSigningKey signs mock-issued session tokens.
	DefaultSigningKey = "vibecheck-mock-signing-key"
)

// Options configures a Transport.
type Options struct {
	// BaseURL is the API base; its scheme and host form the intercepted origin.
	BaseURL *url.URL

	// Next receives requests outside the API origin. Defaults to http.DefaultTransport.
	Next http.RoundTripper

	// Latency is the fixed delay before a mocked response. Zero disables it.
	Latency time.Duration

	// SigningKey signs and verifies mock session tokens.
	SigningKey string

	Metrics *metrics.Metrics
}

// Transport intercepts API-origin requests and answers them from the route table.
type Transport struct {
	base       *url.URL
	next       http.RoundTripper
	latency    time.Duration
	signingKey string
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	// accounts remembers the names given at registration so /users/me echoes them.
	accounts *accountBook
}

// NewTransport builds a mock Transport.
func NewTransport(opts Options) *Transport {
	next := opts.Next
	if next == nil {
		next = http.DefaultTransport
	}

	signingKey := opts.SigningKey
	if signingKey == "" {
		signingKey = DefaultSigningKey
	}

	t := &Transport{
		base:       opts.BaseURL,
		next:       next,
		latency:    opts.Latency,
		signingKey: signingKey,
		metrics:    opts.Metrics,
		logger:     logx.Component("mock"),
		accounts:   newAccountBook(),
	}

	t.logger.Info().
		Str("origin", opts.BaseURL.Scheme+"://"+opts.BaseURL.Host).
		Int("routes", len(routes)).
		Dur("latency", opts.Latency).
		Msg("Mock mode enabled: API requests are answered from fixtures")

	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.targetsAPI(req.URL) {
		return t.next.RoundTrip(req)
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("mock: read request body: %w", err)
		}
	}

	status, payload := t.Resolve(req, body)

	if t.latency > 0 {
		timer := time.NewTimer(t.latency)
		defer timer.Stop()

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mock: encode payload: %w", err)
	}

	return &http.Response{
		StatusCode:    status,
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(encoded)),
		ContentLength: int64(len(encoded)),
		Request:       req,
	}, nil
}

// Resolve matches the request against the route table. It always produces a response:
// unmatched requests resolve to 404 {"message": "Mock endpoint not found"}.
func (t *Transport) Resolve(req *http.Request, body []byte) (int, any) {
	path := t.relativePath(req.URL.Path)

	fx, ok := routes[routeKey{method: req.Method, path: path}]
	t.metrics.IncMockResolution(ok)

	if !ok {
		t.logger.Debug().Str("method", req.Method).Str("path", path).Msg("No mock fixture for request")
		return notFound()
	}

	status, payload := fx(&call{req: req, body: body, signingKey: t.signingKey, accounts: t.accounts})
	t.logger.Debug().Str("method", req.Method).Str("path", path).Int("status", status).Msg("Mock fixture resolved")
	return status, payload
}

func (t *Transport) targetsAPI(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, t.base.Scheme) && strings.EqualFold(u.Host, t.base.Host)
}

// relativePath strips the API base path and trailing slashes: "/api/users/" -> "/users".
// The base path only matches whole segments, so "/apiary" is not under "/api".
func (t *Transport) relativePath(p string) string {
	base := strings.TrimRight(t.base.Path, "/")
	if base != "" && (p == base || strings.HasPrefix(p, base+"/")) {
		p = p[len(base):]
	}
	p = strings.TrimRight(p, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func analysisID() string {
	code, err := randx.AnalysisCode()
	if err != nil {
		return randx.RequestID()
	}
	return code
}
