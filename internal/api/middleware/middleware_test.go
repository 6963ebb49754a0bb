package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craudioviz/invoicer/internal/config"
	"github.com/craudioviz/invoicer/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockUserStore struct {
	users map[string]*models.User
}

func (m *mockUserStore) GetUserByTokenHash(_ context.Context, hash string) (*models.User, error) {
	if u, ok := m.users[hash]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func authRouter(store UserStore) *gin.Engine {
	r := gin.New()
	r.Use(Auth(store, zerolog.Nop()))
	r.GET("/me", func(c *gin.Context) {
		user := RequireUser(c)
		if user == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": user.Email})
	})
	return r
}

func TestAuthValidToken(t *testing.T) {
	token, hash, err := models.NewToken()
	require.NoError(t, err)
	user := models.NewUser("dev@example.com", "Dev")
	user.APITokenHash = hash

	r := authRouter(&mockUserStore{users: map[string]*models.User{hash: user}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dev@example.com")
}

func TestAuthMissingHeader(t *testing.T) {
	r := authRouter(&mockUserStore{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthUnknownToken(t *testing.T) {
	r := authRouter(&mockUserStore{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer deadbeef")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func cronRouter(secret string) *gin.Engine {
	r := gin.New()
	r.PUT("/run", CronSecret(secret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestCronSecret(t *testing.T) {
	r := cronRouter("s3cret")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/run", nil)
	req.Header.Set("X-Cron-Secret", "s3cret")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("PUT", "/run", nil)
	req.Header.Set("X-Cron-Secret", "wrong")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCronSecretUnconfigured(t *testing.T) {
	r := cronRouter("")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/run", nil)
	req.Header.Set("X-Cron-Secret", "")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}, config.EnvDevelopment))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}, config.EnvDevelopment))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRedactQueryString(t *testing.T) {
	assert.Equal(t, "", redactQueryString(""))
	assert.Contains(t, redactQueryString("token=abc123&page=2"), "token=%5BREDACTED%5D")
	assert.Equal(t, "page=2", redactQueryString("page=2"))
}

func TestNewRateLimiterInvalidPeriod(t *testing.T) {
	_, err := NewRateLimiter(100, "potato")
	assert.Error(t, err)
}
