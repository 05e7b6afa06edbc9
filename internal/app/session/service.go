package session

import (
	"context"
	"net/http"

	"vibecheck/internal/app/gateway"
	"vibecheck/internal/pkg/metrics"
)

type contextKey struct{}

// Service builds one Store per HTTP request from shared dependencies.
type Service struct {
	cache         *IdentityCache
	client        *gateway.Client
	metrics       *metrics.Metrics
	secureCookies bool
}

// NewService returns a Service. secureCookies marks the session cookie Secure.
func NewService(cache *IdentityCache, client *gateway.Client, m *metrics.Metrics, secureCookies bool) *Service {
	return &Service{
		cache:         cache,
		client:        client,
		metrics:       m,
		secureCookies: secureCookies,
	}
}

// ForRequest returns a Store bound to the cookies of r and w. It is not initialized yet.
func (svc *Service) ForRequest(w http.ResponseWriter, r *http.Request) *Store {
	return NewStore(NewHTTPCookies(w, r, svc.secureCookies), svc.cache, svc.client, svc.metrics)
}

// Middleware initializes a Store for every request and stores it in the request context.
func (svc *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := svc.ForRequest(w, r)
		store.Initialize(r.Context())
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), store)))
	})
}

// NewContext returns a copy of ctx carrying store.
func NewContext(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, store)
}

// FromContext returns the Store placed by Middleware, or nil.
func FromContext(ctx context.Context) *Store {
	store, _ := ctx.Value(contextKey{}).(*Store)
	return store
}
