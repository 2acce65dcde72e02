package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims principalClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authTestRouter() (*gin.Engine, *entity.AuthenticatedPrincipal) {
	gin.SetMode(gin.TestMode)
	var captured entity.AuthenticatedPrincipal

	r := gin.New()
	r.Use(authMiddleware(testSecret, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		captured = principalFrom(c)
		respondOK(c, captured.UserID)
	})
	return r, &captured
}

func TestAuthMiddleware_AttachesPrincipal(t *testing.T) {
	r, captured := authTestRouter()

	token := signToken(t, principalClaims{
		Role:         entity.RoleStaff,
		ContractorID: "acme",
		Permissions: []entity.ModulePermission{
			{MunicipalityID: "nashua", Module: "permits", Action: "admin"},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", captured.UserID)
	assert.Equal(t, entity.RoleStaff, captured.GlobalRole)
	assert.Equal(t, "acme", captured.ContractorID)
	require.Len(t, captured.Permissions, 1)
	assert.Equal(t, "nashua", captured.Permissions[0].MunicipalityID)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	r, _ := authTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing bearer token")
}

func TestAuthMiddleware_BadSignature(t *testing.T) {
	r, _ := authTestRouter()

	token := signToken(t, principalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, "some-other-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	r, _ := authTestRouter()

	token := signToken(t, principalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
