package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// SessionExpiration is the lifetime of tokens issued by the mock identity service.
	SessionExpiration = 24 * time.Hour

	// TokenIssuer identifies tokens minted by the mock identity service.
	TokenIssuer = "VibeCheck-Mock"
)

var (
	// ErrMalformed reports a token that cannot be parsed at all.
	ErrMalformed = errors.New("malformed token")

	// ErrExpired reports a parsable token whose time claims are no longer valid.
	ErrExpired = errors.New("token expired")

	// ErrMissingSubject reports a parsable token without a `sub` claim.
	ErrMissingSubject = errors.New("token has no subject")
)

// DecodeError wraps the reason a session token was rejected.
type DecodeError struct {
	Reason error
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode session token: %v", e.Reason)
	}
	return fmt.Sprintf("decode session token: %v: %v", e.Reason, e.Err)
}

// Is lets errors.Is match the reason sentinels.
func (e *DecodeError) Is(target error) bool {
	return target == e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads the claims of tokenString without verifying its signature.
// The gateway never holds the identity service's signing key; it only checks that the token
// is well formed, carries a subject, and has not expired.
func Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}

	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return nil, &DecodeError{Reason: ErrMalformed, Err: err}
	}

	if err := claims.Valid(); err != nil {
		return nil, &DecodeError{Reason: ErrExpired, Err: err}
	}

	if claims.Subject == "" {
		return nil, &DecodeError{Reason: ErrMissingSubject}
	}

	return claims, nil
}

// GenerateToken signs claims with HS256, stamping iat, exp and iss.
func GenerateToken(claims *Claims, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(duration).Unix()
	claims.Issuer = TokenIssuer

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses tokenString and verifies its HS256 signature with secretKey.
func ParseToken(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	return claims, nil
}
