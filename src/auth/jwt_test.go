package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-hmac-key"

func userToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestVerifyUserToken(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		token := userToken(t, jwt.MapClaims{
			"aud": "authenticated",
			"sub": "user-123",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		uid, err := VerifyUserToken(token, testSecret)
		assert.NoError(t, err)
		assert.Equal(t, "user-123", uid)
	})
	t.Run("wrong secret", func(t *testing.T) {
		token := userToken(t, jwt.MapClaims{"aud": "authenticated", "sub": "user-123"})
		_, err := VerifyUserToken(token, "not-the-secret")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		token := userToken(t, jwt.MapClaims{
			"aud": "authenticated",
			"sub": "user-123",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		_, err := VerifyUserToken(token, testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("wrong audience", func(t *testing.T) {
		token := userToken(t, jwt.MapClaims{"aud": "anon", "sub": "user-123"})
		_, err := VerifyUserToken(token, testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("missing sub", func(t *testing.T) {
		token := userToken(t, jwt.MapClaims{"aud": "authenticated"})
		_, err := VerifyUserToken(token, testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := VerifyUserToken("", testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestServiceToken(t *testing.T) {
	signed, err := ServiceToken(testSecret)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "service_role", claims["role"])
	assert.Equal(t, "assetgate", claims["iss"])
}
