package client

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseToken(t *testing.T, token, secret string) *Claims {
	t.Helper()
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(secret), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(*Claims)
	require.True(t, ok)
	return claims
}

func TestTokenSession_SignsZGWClaims(t *testing.T) {
	session := NewTokenSession("zac", "s3cret", time.Minute)
	token, err := session.Token()
	require.NoError(t, err)

	claims := parseToken(t, token, "s3cret")
	assert.Equal(t, "zac", claims.ClientID)
	assert.Equal(t, "zac", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenSession_ReusesUntilNearExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	session := NewTokenSession("zac", "s3cret", 5*time.Minute)
	session.now = func() time.Time { return now }

	first, err := session.Token()
	require.NoError(t, err)

	now = now.Add(time.Minute)
	second, err := session.Token()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	now = now.Add(4 * time.Minute)
	third, err := session.Token()
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestTokenSession_Invalidate(t *testing.T) {
	session := NewTokenSession("zac", "s3cret", 0)
	first, err := session.Token()
	require.NoError(t, err)

	session.Invalidate()
	second, err := session.Token()
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "tokens carry a fresh jti")
}
