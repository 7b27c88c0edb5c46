package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, "accounts")
	now := time.Now()

	token, err := issuer.GenerateJWT("user-1", "a@b.c", "session-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	claims, err := issuer.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "session-1", claims.SessionID())
	assert.Equal(t, "a@b.c", claims.Email)
}

func TestParseJWTRejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, "accounts")
	now := time.Now()

	expired, err := issuer.GenerateJWT("user-1", "a@b.c", "session-1", now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)

	otherKey, err := NewTokenIssuer("other", time.Hour, "accounts").GenerateJWT("user-1", "a@b.c", "session-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	otherIssuer, err := NewTokenIssuer("secret", time.Hour, "elsewhere").GenerateJWT("user-1", "a@b.c", "session-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	noSession, err := issuer.GenerateJWT("user-1", "a@b.c", "", now, now.Add(time.Hour))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong key":    otherKey,
		"wrong issuer": otherIssuer,
		"no session":   noSession,
		"alg none":     unsigned,
		"garbage":      "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.ParseJWT(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
