package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"future-self-api/pkg/utils"
)

const (
	testSecret = "test-secret"
	testIssuer = "future-self"
)

func newAuthTestEngine(enabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	// 与路由注册一致：中间件挂在受保护的路由组上，公开路由不经过
	protected := engine.Group("", Auth(AuthConfig{
		Secret:  testSecret,
		Issuer:  testIssuer,
		Enabled: enabled,
	}))
	protected.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserIDFromGin(c)})
	})
	engine.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func TestAuth_ValidToken(t *testing.T) {
	engine := newAuthTestEngine(true)

	token, err := utils.NewJWTManager(testSecret, testIssuer).
		GenerateToken("user-1", "a@example.com", "user", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestAuth_MissingHeader(t *testing.T) {
	engine := newAuthTestEngine(true)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_MalformedHeader(t *testing.T) {
	engine := newAuthTestEngine(true)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	engine := newAuthTestEngine(true)

	token, err := utils.NewJWTManager(testSecret, testIssuer).
		GenerateToken("user-1", "a@example.com", "user", -time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")
}

func TestAuth_PublicRouteBypasses(t *testing.T) {
	engine := newAuthTestEngine(true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_Disabled(t *testing.T) {
	engine := newAuthTestEngine(false)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
