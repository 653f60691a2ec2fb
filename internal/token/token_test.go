package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return raw
}

func TestInspect(t *testing.T) {
	exp := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	raw := signed(t, jwt.MapClaims{
		"token_type": "access",
		"user_id":    42,
		"exp":        exp.Unix(),
	})

	claims, err := Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, "42", claims.User())
	require.Equal(t, "access", claims.TokenType)

	got, err := claims.Expiry()
	require.NoError(t, err)
	require.True(t, exp.Equal(got))

	require.False(t, claims.Expired(exp.Add(-time.Minute)))
	require.True(t, claims.Expired(exp))
}

func TestInspectStringUserID(t *testing.T) {
	raw := signed(t, jwt.MapClaims{"token_type": "refresh", "user_id": "u-7"})

	claims, err := Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, "u-7", claims.User())

	_, err = claims.Expiry()
	require.ErrorIs(t, err, ErrNoExpiry)
	require.False(t, claims.Expired(time.Now()))
}

func TestInspectGarbage(t *testing.T) {
	_, err := Inspect("not-a-jwt")
	require.Error(t, err)
}
