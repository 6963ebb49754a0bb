package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHealthStore struct {
	pingErr error
}

func (m *mockHealthStore) Ping(context.Context) error {
	return m.pingErr
}

func (m *mockHealthStore) Health() map[string]any {
	return map[string]any{"total_conns": 4}
}

func healthRouter(store HealthStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHealthHandler(store, "1.2.3").RegisterRoutes(r.Group(""))
	return r
}

func TestHealthOK(t *testing.T) {
	r := healthRouter(&mockHealthStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "1.2.3", resp["version"])
	database := resp["database"].(map[string]any)
	assert.Equal(t, "healthy", database["status"])
	assert.Equal(t, float64(4), database["total_conns"])
}

func TestHealthDatabaseUnreachable(t *testing.T) {
	r := healthRouter(&mockHealthStore{pingErr: errors.New("connection refused")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "unreachable", resp["database"].(map[string]any)["status"])
}
