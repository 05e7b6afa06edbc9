/*
Package user defines the identity of a VibeCheck account as seen by the web gateway.

The identity service is the source of truth; the gateway only carries a denormalized copy and
exposes the single capability predicate used by every role-gated decision.
*/
package user

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Role is the authorization role of an account.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleUser    Role = "USER"
	RoleService Role = "SERVICE"
)

// ParseRole normalizes a role string. Unknown or empty values fall back to RoleUser.
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleService:
		return RoleService
	default:
		return RoleUser
	}
}

// UnmarshalText normalizes the role sent by the identity service.
func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// ID is an account identifier. The identity service may encode it as a JSON number or string.
type ID string

// UnmarshalJSON accepts both `42` and `"42"`.
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Identity is the user record returned by `GET /users/me`.
type Identity struct {
	ID        ID         `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name,omitempty"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// FromSubject builds the minimal identity recoverable from a token's subject claim alone. It
// always carries RoleUser; roles come only from the identity service.
func FromSubject(subject string) *Identity {
	identity := &Identity{
		ID:   ID(subject),
		Role: RoleUser,
	}

	if strings.Contains(subject, "@") {
		identity.Email = subject
		identity.FirstName = subject[:strings.Index(subject, "@")]
	}

	return identity
}

// MatchesSubject reports whether the identity belongs to the token subject `sub`.
func (i *Identity) MatchesSubject(sub string) bool {
	if i == nil || sub == "" {
		return false
	}
	return strings.EqualFold(i.Email, sub) || string(i.ID) == sub
}

// DisplayName joins the first and last name.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// CanAccessAdmin is the capability predicate for the administrative area.
func CanAccessAdmin(identity *Identity) bool {
	return identity != nil && identity.Role == RoleAdmin
}
