package jwt

import (
	"net/http"
	"strings"
)

// BearerToken extracts the token from an `Authorization: Bearer <token>` header.
func BearerToken(h http.Header) (string, bool) {
	authHeader := h.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
