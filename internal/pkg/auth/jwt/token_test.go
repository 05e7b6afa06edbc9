package jwt

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-signing-key"

func TestGenerateAndDecode(t *testing.T) {
	token, err := GenerateToken(NewClaims("admin@vibecheck.dev", "ADMIN"), testKey, time.Hour)
	require.NoError(t, err)

	claims, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@vibecheck.dev", claims.Subject)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.WithinDuration(t, time.Now(), time.Unix(claims.IssuedAt, 0), time.Minute)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode("not-a-jwt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestDecode_Expired(t *testing.T) {
	token, err := GenerateToken(NewClaims("test@example.com", ""), testKey, -time.Hour)
	require.NoError(t, err)

	_, err = Decode(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestDecode_MissingSubject(t *testing.T) {
	token, err := GenerateToken(&Claims{}, testKey, time.Hour)
	require.NoError(t, err)

	_, err = Decode(token)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestParseToken_VerifiesSignature(t *testing.T) {
	token, err := GenerateToken(NewClaims("test@example.com", ""), testKey, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, testKey)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", claims.Subject)

	_, err = ParseToken(token, "another-key")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	h := http.Header{}
	_, ok := BearerToken(h)
	assert.False(t, ok)

	h.Set("Authorization", "Basic abc")
	_, ok = BearerToken(h)
	assert.False(t, ok)

	h.Set("Authorization", "Bearer abc.def.ghi")
	tok, ok := BearerToken(h)
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", tok)
}
