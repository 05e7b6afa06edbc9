package jwt

import "github.com/golang-jwt/jwt"

// Claims is the payload of a VibeCheck session token.
// The identity service puts the user's email in `sub`; `role` is optional.
type Claims struct {
	// StandardClaims carries sub, iat and exp at the top level of the payload.
	jwt.StandardClaims

	// Role is the user's role when the issuer embeds it (ADMIN, USER, SERVICE).
	Role string `json:"role,omitempty"`
}

// NewClaims returns claims for subject with an optional role.
func NewClaims(subject, role string) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{Subject: subject},
		Role:           role,
	}
}
