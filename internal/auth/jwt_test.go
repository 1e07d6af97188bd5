package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	subject := "admin"

	tokenStr, expiresAt, err := GenerateToken(subject, secret, 5*time.Minute)
	assert.NoError(t, err)
	assert.NotEmpty(t, tokenStr)

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	assert.NoError(t, err)
	assert.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, subject, claims[claimSubject])

	exp := int64(claims["exp"].(float64))
	assert.Equal(t, expiresAt.Unix(), exp)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", token)

	got, err := SubjectFromContext(c)
	assert.NoError(t, err)
	assert.Equal(t, subject, got)
}

func TestGenerateTokenValidation(t *testing.T) {
	_, _, err := GenerateToken("", "secret", time.Minute)
	assert.Error(t, err)

	_, _, err = GenerateToken("admin", "", time.Minute)
	assert.Error(t, err)

	_, _, err = GenerateToken("admin", "secret", 0)
	assert.Error(t, err)
}

func TestSubjectFromContext_MissingUser(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_, err := SubjectFromContext(c)
	assert.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	assert.Equal(t, "invalid token", httpErr.Message)
}
