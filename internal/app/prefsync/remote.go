package prefsync

import (
	"context"

	"vibecheck/internal/app/gateway"
)

const preferencesPath = "/users/preferences"

// GatewayRemote stores preferences through the API gateway.
type GatewayRemote struct {
	client *gateway.Client
}

// NewGatewayRemote authenticates client with tokens.
func NewGatewayRemote(client *gateway.Client, tokens gateway.TokenSource) *GatewayRemote {
	return &GatewayRemote{client: client.WithTokenSource(tokens)}
}

// Fetch reads `GET /users/preferences`.
func (g *GatewayRemote) Fetch(ctx context.Context) (Preferences, error) {
	var prefs Preferences
	if err := g.client.GetJSON(ctx, preferencesPath, &prefs); err != nil {
		return Preferences{}, err
	}
	return prefs.Clone(), nil
}

// Store sends the full set with `PUT /users/preferences`.
func (g *GatewayRemote) Store(ctx context.Context, prefs Preferences) error {
	return g.client.PutJSON(ctx, preferencesPath, prefs, nil)
}
