/*
Package session is the single authority on who is logged in.

A Store reads the `access_token` cookie, derives the identity from it, and exposes the
Unknown, Anonymous, and Authenticated states plus the login, register, and logout actions.
All cookie and identity-cache access goes through the Store.
*/
package session

import "vibecheck/internal/app/user"

// Status is the resolution state of a Store.
type Status int

const (
	// StatusUnknown is the initial state, before the token has been checked.
	StatusUnknown Status = iota
	StatusAnonymous
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// MarshalText renders the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Navigation targets returned by the session actions.
const (
	PathLogin   = "/login"
	PathProfile = "/profile"
	PathAdmin   = "/admin"
)

// State is a snapshot of the session. Identity is non-nil only when Status is StatusAuthenticated.
type State struct {
	Status   Status
	Identity *user.Identity
}

// Loading reports whether the session has not been resolved yet.
func (s State) Loading() bool {
	return s.Status == StatusUnknown
}

// Authenticated reports whether an identity is known.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Identity != nil
}

func anonymous() State {
	return State{Status: StatusAnonymous}
}

func authenticated(identity *user.Identity) State {
	return State{Status: StatusAuthenticated, Identity: identity}
}

// DestinationFor returns where a freshly authenticated identity should land.
func DestinationFor(identity *user.Identity) string {
	if user.CanAccessAdmin(identity) {
		return PathAdmin
	}
	return PathProfile
}
