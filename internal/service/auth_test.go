package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:    "user-1",
		TokenType: TokenTypeAccess,
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(testSecret)

	claims, err := svc.ValidateToken(signToken(t, validClaims(), testSecret))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := NewAuthService(testSecret)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := svc.ValidateToken(signToken(t, validClaims(), "other-secret"))
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		_, err := svc.ValidateToken(signToken(t, c, testSecret))
		assert.Error(t, err)
	})

	t.Run("missing user id", func(t *testing.T) {
		c := validClaims()
		c.UserID = ""
		_, err := svc.ValidateToken(signToken(t, c, testSecret))
		assert.Error(t, err)
	})

	t.Run("wrong token type", func(t *testing.T) {
		c := validClaims()
		c.TokenType = "refresh"
		_, err := svc.ValidateToken(signToken(t, c, testSecret))
		assert.Error(t, err)
	})
}
