package auth

import (
	"testing"

	"github.com/goldclear/clearing-api/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenCarriesActorIdentity(t *testing.T) {
	t.Parallel()

	svc := NewService("test-secret")
	svc.RegisterActorCredentials("treasury-key", "treasury-secret", "USR_treasury_1", types.RoleTreasury)

	resp, err := svc.GenerateToken(Credentials{APIKey: "treasury-key", APISecret: "treasury-secret"})
	require.NoError(t, err)
	assert.Equal(t, "USR_treasury_1", resp.ActorID)
	assert.Equal(t, types.RoleTreasury, resp.Role)
	require.NotEmpty(t, resp.Token)

	// The signed token round-trips the actor id and role claims.
	parsed, err := jwt.Parse(resp.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "USR_treasury_1", claims["actor_id"])
	assert.Equal(t, string(types.RoleTreasury), claims["role"])
	assert.Equal(t, "USR_treasury_1", GetActorID(claims))
}

func TestGenerateTokenRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	svc := NewService("test-secret")
	svc.RegisterActorCredentials("vault-key", "vault-secret", "USR_vault_1", types.RoleVaultOps)

	_, err := svc.GenerateToken(Credentials{APIKey: "vault-key", APISecret: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.GenerateToken(Credentials{APIKey: "unknown-key", APISecret: "vault-secret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetActorIDHandlesUnknownClaimShapes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", GetActorID(nil))
	assert.Equal(t, "", GetActorID(jwt.MapClaims{}))
	assert.Equal(t, "", GetActorID(jwt.MapClaims{"actor_id": 42}))
}
