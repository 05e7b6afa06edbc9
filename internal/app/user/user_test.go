package user

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_UnmarshalNumericAndStringID(t *testing.T) {
	var a, b Identity
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"first_name":"Ada","email":"ada@example.com","role":"ADMIN"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u-1","first_name":"Bo","email":"bo@example.com","role":"USER","created_at":"2024-05-01T10:00:00Z"}`), &b))

	assert.Equal(t, ID("42"), a.ID)
	assert.Equal(t, RoleAdmin, a.Role)
	assert.Nil(t, a.CreatedAt)
	assert.Equal(t, ID("u-1"), b.ID)
	require.NotNil(t, b.CreatedAt)
	assert.Equal(t, 2024, b.CreatedAt.Year())
}

func TestCanAccessAdmin(t *testing.T) {
	assert.False(t, CanAccessAdmin(nil))
	assert.True(t, CanAccessAdmin(&Identity{Role: RoleAdmin}))
	for _, r := range []Role{RoleUser, RoleService, Role("")} {
		assert.False(t, CanAccessAdmin(&Identity{Role: r}), "role %q", r)
	}
}

func TestFromSubject(t *testing.T) {
	id := FromSubject("test@example.com")
	assert.Equal(t, "test@example.com", id.Email)
	assert.Equal(t, "test", id.FirstName)
	assert.Equal(t, RoleUser, id.Role)
	assert.True(t, id.MatchesSubject("TEST@example.com"))

	svc := FromSubject("svc-7")
	assert.Equal(t, RoleUser, svc.Role, "no role is taken from token claims")
	assert.Empty(t, svc.Email)
	assert.True(t, svc.MatchesSubject("svc-7"))
	assert.False(t, svc.MatchesSubject("other"))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole(" admin "))
	assert.Equal(t, RoleUser, ParseRole("superuser"))
}

func TestIdentity_RoleIsNormalizedOnDecode(t *testing.T) {
	var id Identity
	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b.c","role":"admin"}`), &id))
	assert.Equal(t, RoleAdmin, id.Role)

	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b.c","role":"owner"}`), &id))
	assert.Equal(t, RoleUser, id.Role)
}
