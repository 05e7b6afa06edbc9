/*
Package gateway is the single choke point for every call the web gateway makes to the
VibeCheck API.

A Client resolves request descriptors against the configured API origin, attaches the session
bearer, applies one fixed timeout, and classifies failures as NetworkError, TimeoutError, or
HTTPError. The underlying transport is chosen once at construction: the real network or the
mock resolver used for offline development.
*/
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vibecheck/internal/app/mock"
	"vibecheck/internal/pkg/logx"
	"vibecheck/internal/pkg/metrics"
)

const (
	// DefaultTimeout tolerates slow AI inference on the analysis endpoints.
	DefaultTimeout = 5 * time.Minute

	// maxResponseBytes bounds the body read from the API.
	maxResponseBytes = 16 << 20
)

// Config selects the API origin, timeout, and transport strategy.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MockMode       bool
	MockLatency    time.Duration
	MockSigningKey string
}

// Request is the descriptor of one outbound call. URL is relative to the API base unless absolute.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read API response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// DecodeJSON unmarshals the response body into dst.
func (r *Response) DecodeJSON(dst any) error {
	if dst == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Client sends request descriptors to the VibeCheck API.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New builds a Client, wrapping the real transport with the mock resolver when cfg.MockMode is set.
func New(cfg Config, m *metrics.Metrics) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	transport := NewRealTransport()
	if cfg.MockMode {
		transport = mock.NewTransport(mock.Options{
			BaseURL:    base,
			Next:       transport,
			Latency:    cfg.MockLatency,
			SigningKey: cfg.MockSigningKey,
			Metrics:    m,
		})
	}

	return NewWithTransport(cfg, transport, m)
}

// NewWithTransport builds a Client over an explicit transport.
func NewWithTransport(cfg Config, transport http.RoundTripper, m *metrics.Metrics) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := logx.Component("gateway").With().
		Str("api_origin", base.Scheme+"://"+base.Host).
		Bool("mock_mode", cfg.MockMode).
		Logger()

	return &Client{
		base: base,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: timeout,
		tokens:  noToken{},
		metrics: m,
		logger:  logger,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", raw, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("API base URL %q must be absolute", raw)
	}
	return base, nil
}

// WithTokenSource returns a copy of c that authenticates with ts. The transport is shared.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	cp := *c
	if ts == nil {
		ts = noToken{}
	}
	cp.tokens = ts
	return &cp
}

// BaseURL returns the configured API base.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Send issues d and returns the fully read response. Non-2xx statuses are returned as *HTTPError.
func (c *Client) Send(ctx context.Context, d *Request) (*Response, error) {
	method := d.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolve(d.URL)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: d.URL, Err: err}
	}
	targetStr := target.String()

	var body io.Reader
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, targetStr, body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: targetStr, Err: err}
	}

	for key, values := range d.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	if c.sameOrigin(target) {
		if token, ok := c.tokens.Token(); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		failure := c.classify(method, targetStr, err)
		c.observe(method, failure, start)
		return nil, failure
	}
	defer httpRes.Body.Close()

	resBody, err := io.ReadAll(io.LimitReader(httpRes.Body, maxResponseBytes))
	if err != nil {
		failure := c.classify(method, targetStr, err)
		c.observe(method, failure, start)
		return nil, failure
	}

	res := &Response{
		Status: httpRes.StatusCode,
		Header: httpRes.Header,
		Body:   resBody,
	}

	if res.Status < 200 || res.Status > 299 {
		httpErr := &HTTPError{Method: method, URL: targetStr, Status: res.Status, Body: resBody}
		c.observe(method, httpErr, start)
		return res, httpErr
	}

	c.observe(method, nil, start)
	return res, nil
}

// resolve joins relative descriptors onto the base URL, keeping its path prefix.
func (c *Client) resolve(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	if u.IsAbs() {
		return u, nil
	}

	resolved := *c.base
	resolved.Path = c.base.Path + "/" + strings.TrimLeft(u.Path, "/")
	resolved.RawPath = ""
	resolved.RawQuery = u.RawQuery
	return &resolved, nil
}

func (c *Client) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.base.Scheme) && strings.EqualFold(u.Host, c.base.Host)
}

func (c *Client) classify(method, target string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Method: method, URL: target, Timeout: c.timeout, Err: err}
	}
	return &NetworkError{Method: method, URL: target, Err: err}
}

// observe logs the outcome of one call and records it in the metrics.
func (c *Client) observe(method string, err error, start time.Time) {
	elapsed := time.Since(start)

	var (
		httpErr    *HTTPError
		timeoutErr *TimeoutError
		netErr     *NetworkError
		outcome    = "ok"
	)

	switch {
	case err == nil:
		c.logger.Debug().Str("method", method).Dur("latency", elapsed).Msg("API request completed")
	case errors.As(err, &httpErr):
		outcome = "http_error"
		c.logger.Warn().
			Str("method", method).
			Str("url", httpErr.URL).
			Int("status", httpErr.Status).
			Str("detail", httpErr.Detail()).
			Dur("latency", elapsed).
			Msg("API responded with an error status")
	case errors.As(err, &timeoutErr):
		outcome = "timeout"
		c.logger.Error().Err(err).Str("method", method).Dur("latency", elapsed).Msg("API request timed out")
	case errors.As(err, &netErr):
		outcome = "network_error"
		c.logger.Error().Err(err).Str("method", method).Dur("latency", elapsed).Msg("API request failed without a response")
	}

	c.metrics.ObserveGatewayRequest(method, outcome, elapsed)
}

// GetJSON issues a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON sends in as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// PutJSON sends in as JSON with PUT and decodes the response into out.
func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, in, out)
}

// PostForm sends form url-encoded and decodes the response into out.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	res, err := c.Send(ctx, &Request{
		Method: http.MethodPost,
		URL:    path,
		Header: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}, "Accept": {"application/json"}},
		Body:   []byte(form.Encode()),
	})
	if err != nil {
		return err
	}
	return res.DecodeJSON(out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	header := http.Header{"Accept": {"application/json"}}

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		header.Set("Content-Type", "application/json")
	}

	res, err := c.Send(ctx, &Request{Method: method, URL: path, Header: header, Body: body})
	if err != nil {
		return err
	}
	return res.DecodeJSON(out)
}
