package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendoor-ai/chatcore/internal/service"
)

const testSecret = "test-secret"

func testServer() *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(service.NewAuthService(testSecret), nil, nil, logger)
}

func signToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:    "user-1",
		TokenType: service.TokenTypeAccess,
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func invokeWithAuth(t *testing.T, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/conversations/x/messages", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotUser string
	handler := testServer().AuthMiddleware(func(c echo.Context) error {
		gotUser = GetUserID(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, gotUser
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rec, user := invokeWithAuth(t, "Bearer "+signToken(t))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", user)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := invokeWithAuth(t, tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
