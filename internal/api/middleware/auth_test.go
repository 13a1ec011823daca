package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, labels []string) string {
	t.Helper()
	claims := sessionClaims{
		Email:  "manager@edustack.test",
		Labels: labels,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/clients", AuthRequired(testSecret), ManageOnly(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetString("user_id"),
			"user_email": c.GetString("user_email"),
		})
	})
	return r
}

func get(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/clients", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestManageLabelGrantsAccess(t *testing.T) {
	router := newAuthRouter()
	token := signToken(t, testSecret, []string{"manage"})

	resp := get(router, "Bearer "+token)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "u-1")
	assert.Contains(t, resp.Body.String(), "manager@edustack.test")
}

func TestNonManageLabelForbidden(t *testing.T) {
	router := newAuthRouter()
	token := signToken(t, testSecret, []string{"admin"})

	resp := get(router, "Bearer "+token)

	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "not authorized to manage clients")
}

func TestMissingHeaderUnauthorized(t *testing.T) {
	resp := get(newAuthRouter(), "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestNonBearerHeaderUnauthorized(t *testing.T) {
	resp := get(newAuthRouter(), "Basic abc123")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestWrongSecretUnauthorized(t *testing.T) {
	router := newAuthRouter()
	token := signToken(t, "other-secret", []string{"manage"})

	resp := get(router, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
