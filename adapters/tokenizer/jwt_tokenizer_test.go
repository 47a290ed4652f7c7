package tokenizer

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	tk := NewJWTTokenizer("secret")

	token, err := tk.SessionToken("session-123")
	require.NoError(t, err)

	sid, err := tk.ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-123", sid)
}

func TestParseSessionTokenWrongSecret(t *testing.T) {
	token, err := NewJWTTokenizer("secret-a").SessionToken("session-123")
	require.NoError(t, err)

	_, err = NewJWTTokenizer("secret-b").ParseSessionToken(token)
	assert.Error(t, err)
}

func TestParseSessionTokenRejectsAccessToken(t *testing.T) {
	tk := NewJWTTokenizer("secret")

	token, err := tk.AccessToken("8xJUqn1pXhPDUeSX2qhEgRnbZxMPNpyFY9nUzDmkgqUX", "session-123")
	require.NoError(t, err)

	_, err = tk.ParseSessionToken(token)
	assert.Error(t, err, "access tokens must not pass as session tokens")
}

func TestParseSessionTokenGarbage(t *testing.T) {
	_, err := NewJWTTokenizer("secret").ParseSessionToken("not-a-jwt")
	assert.Error(t, err)
}

func TestAccessTokenClaims(t *testing.T) {
	const address = "8xJUqn1pXhPDUeSX2qhEgRnbZxMPNpyFY9nUzDmkgqUX"

	token, err := NewJWTTokenizer("secret").AccessToken(address, "session-123")
	require.NoError(t, err)

	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithAudience(AudienceAccess))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, address, claims.Subject)
	assert.Equal(t, "session-123", claims.SessionID)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}
