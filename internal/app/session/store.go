package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"vibecheck/internal/app/gateway"
	"vibecheck/internal/app/user"
	"vibecheck/internal/pkg/auth/jwt"
	"vibecheck/internal/pkg/logx"
	"vibecheck/internal/pkg/metrics"
)

// ErrInvalidCredentials is returned by Login when the identity service rejects the attempt.
var ErrInvalidCredentials = errors.New("invalid credentials")

// RegistrationError carries the identity service's rejection of a registration verbatim.
type RegistrationError struct {
	Status int
	Detail string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration rejected (HTTP %d): %s", e.Status, e.Detail)
}

// Credentials are submitted to `POST /users/token`.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the payload of `POST /users/`.
type Registration struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Store owns the session of one browser.
type Store struct {
	cookies CookieStore
	cache   *IdentityCache
	client  *gateway.Client
	metrics *metrics.Metrics
	logger  zerolog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	state     State
	subject   string
	ready     chan struct{}
	readyOnce sync.Once
	listeners map[int]func(State)
	nextID    int
}

// NewStore builds a Store in the Unknown state. The gateway client is bound to cookies so every
// API call carries the current token.
func NewStore(cookies CookieStore, cache *IdentityCache, client *gateway.Client, m *metrics.Metrics) *Store {
	return &Store{
		cookies:   cookies,
		cache:     cache,
		client:    client.WithTokenSource(cookies),
		metrics:   m,
		logger:    logx.Component("session"),
		ready:     make(chan struct{}),
		listeners: make(map[int]func(State)),
	}
}

// Client returns the gateway client authenticated with this session.
func (s *Store) Client() *gateway.Client {
	return s.client
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subject returns the subject confirmed by the identity service for this session, or "" when
// the session is anonymous or its token could not be verified. Server-side state is keyed by it.
func (s *Store) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subject
}

// Token returns the raw session token.
func (s *Store) Token() (string, bool) {
	return s.cookies.Token()
}

// CanAccessAdmin reports whether the current identity may enter the administrative area.
func (s *Store) CanAccessAdmin() bool {
	return user.CanAccessAdmin(s.State().Identity)
}

// Subscribe registers fn for every state change and returns a function that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) setState(state State, subject string) {
	s.mu.Lock()
	s.state = state
	s.subject = subject
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if !state.Loading() {
		s.readyOnce.Do(func() { close(s.ready) })
	}

	for _, fn := range listeners {
		fn(state)
	}
}

// Initialize resolves the session from the cookie. Concurrent calls share one execution.
// An undecodable or expired token, or one the identity service rejects, is cleared and resolves
// to Anonymous. A token is confirmed once through `GET /users/me`; the result is cached by token.
func (s *Store) Initialize(ctx context.Context) State {
	v, _, _ := s.group.Do("initialize", func() (any, error) {
		return s.initialize(ctx), nil
	})
	return v.(State)
}

func (s *Store) initialize(ctx context.Context) State {
	token, ok := s.cookies.Token()
	if !ok {
		s.setState(anonymous(), "")
		return anonymous()
	}

	claims, err := jwt.Decode(token)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Discarding undecodable session token")
		s.cookies.ClearToken()
		s.setState(anonymous(), "")
		return anonymous()
	}

	if subject, identity, cached := s.cache.Load(ctx, token); cached {
		state := authenticated(identity)
		s.setState(state, subject)
		s.logger.Debug().Str("subject", logx.MaskSubject(subject)).Bool("from_cache", true).Msg("Session initialized")
		return state
	}

	identity, err := s.fetchIdentity(ctx)
	if err != nil {
		var httpErr *gateway.HTTPError
		if errors.As(err, &httpErr) && (httpErr.Status == http.StatusUnauthorized || httpErr.Status == http.StatusForbidden) {
			s.logger.Warn().Int("status", httpErr.Status).Msg("Discarding session token rejected by the identity service")
			s.cookies.ClearToken()
			s.setState(anonymous(), "")
			return anonymous()
		}

		// Unverified: only the subject claim is shown, and no subject is exposed for keying.
		s.logger.Warn().Err(err).Msg("Could not verify session token; using a minimal identity")
		state := authenticated(user.FromSubject(claims.Subject))
		s.setState(state, "")
		return state
	}

	subject := verifiedSubject(identity)
	if err := s.cache.Save(ctx, token, subject, identity); err != nil {
		s.logger.Warn().Err(err).Str("subject", logx.MaskSubject(subject)).Msg("Failed to cache identity")
	}

	state := authenticated(identity)
	s.setState(state, subject)
	s.logger.Debug().Str("subject", logx.MaskSubject(subject)).Bool("from_cache", false).Msg("Session initialized")

	return state
}

func (s *Store) fetchIdentity(ctx context.Context) (*user.Identity, error) {
	identity := &user.Identity{}
	if err := s.client.GetJSON(ctx, "/users/me", identity); err != nil {
		return nil, err
	}
	if verifiedSubject(identity) == "" {
		return nil, errors.New("identity service returned a user without email or id")
	}
	return identity, nil
}

// verifiedSubject is the owner key of a fetched identity record.
func verifiedSubject(identity *user.Identity) string {
	if identity.Email != "" {
		return identity.Email
	}
	return string(identity.ID)
}

// Await blocks until the session has left the Unknown state or ctx is done.
func (s *Store) Await(ctx context.Context) (State, error) {
	select {
	case <-s.ready:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

// Login exchanges creds for a session token, fetches the full identity, and returns the path to
// navigate to. A rejected attempt returns ErrInvalidCredentials and leaves the cookie unset.
func (s *Store) Login(ctx context.Context, creds Credentials) (string, error) {
	form := url.Values{
		"username": {creds.Email},
		"password": {creds.Password},
	}

	var token tokenResponse
	if err := s.client.PostForm(ctx, "/users/token", form, &token); err != nil {
		var httpErr *gateway.HTTPError
		if errors.As(err, &httpErr) && isRejection(httpErr.Status) {
			s.metrics.IncLogin("invalid_credentials")
			s.logger.Info().Str("email", logx.MaskSubject(creds.Email)).Int("status", httpErr.Status).Msg("Login rejected")
			return "", ErrInvalidCredentials
		}
		s.metrics.IncLogin("error")
		return "", err
	}

	if token.AccessToken == "" {
		s.metrics.IncLogin("error")
		return "", errors.New("identity service returned an empty access token")
	}

	s.cookies.SetToken(token.AccessToken)

	identity, err := s.fetchIdentity(ctx)
	if err != nil {
		s.cookies.ClearToken()
		s.setState(anonymous(), "")
		s.metrics.IncLogin("error")
		return "", fmt.Errorf("fetch identity after login: %w", err)
	}

	subject := verifiedSubject(identity)
	if err := s.cache.Save(ctx, token.AccessToken, subject, identity); err != nil {
		s.logger.Warn().Err(err).Str("subject", logx.MaskSubject(subject)).Msg("Failed to cache identity")
	}

	s.setState(authenticated(identity), subject)
	s.metrics.IncLogin("success")

	s.logger.Info().
		Str("subject", logx.MaskSubject(subject)).
		Str("role", string(identity.Role)).
		Msg("Login succeeded")

	return DestinationFor(identity), nil
}

// Register creates the account and then logs in with the same email and password.
func (s *Store) Register(ctx context.Context, reg Registration) (string, error) {
	if err := s.client.PostJSON(ctx, "/users/", reg, nil); err != nil {
		var httpErr *gateway.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status >= 400 && httpErr.Status < 500 {
			return "", &RegistrationError{Status: httpErr.Status, Detail: httpErr.Detail()}
		}
		return "", err
	}

	return s.Login(ctx, Credentials{Email: reg.Email, Password: reg.Password})
}

// Logout clears the cookie and the cached identity and returns the login path. It never fails.
func (s *Store) Logout(ctx context.Context) string {
	if token, ok := s.cookies.Token(); ok {
		if err := s.cache.Clear(ctx, token); err != nil {
			s.logger.Warn().Err(err).Str("subject", logx.MaskSubject(s.Subject())).Msg("Failed to clear cached identity")
		}
	}

	s.cookies.ClearToken()
	s.setState(anonymous(), "")
	return PathLogin
}

func isRejection(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden
}
