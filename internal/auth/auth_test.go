package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "user-1", time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken("secret", "user-1", time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("other", token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateToken("secret", "user-1", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("secret", "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensHaveDistinctIDs(t *testing.T) {
	a, _ := GenerateToken("secret", "user-1", time.Minute)
	b, _ := GenerateToken("secret", "user-1", time.Minute)
	ca, err := ParseToken("secret", a)
	require.NoError(t, err)
	cb, err := ParseToken("secret", b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pass1234")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "pass1234"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestRevocationList(t *testing.T) {
	list := NewRevocationList(0, time.Minute)
	assert.False(t, list.Revoked("jti-1"))
	list.Revoke("jti-1")
	assert.True(t, list.Revoked("jti-1"))
	assert.False(t, list.Revoked(""))

	var nilList *RevocationList
	assert.False(t, nilList.Revoked("jti-1"))
}
