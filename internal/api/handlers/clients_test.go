package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craudioviz/invoicer/internal/api/middleware"
	"github.com/craudioviz/invoicer/internal/db"
	"github.com/craudioviz/invoicer/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockClientStore struct {
	clients     map[uuid.UUID]*models.Client
	hasInvoices map[uuid.UUID]bool
	deleted     []uuid.UUID
	deactivated []uuid.UUID
	stats       *models.ClientStats
	dupEmail    bool
}

func newMockClientStore() *mockClientStore {
	return &mockClientStore{
		clients:     make(map[uuid.UUID]*models.Client),
		hasInvoices: make(map[uuid.UUID]bool),
	}
}

func (m *mockClientStore) CreateClient(_ context.Context, c *models.Client) error {
	if m.dupEmail {
		return db.ErrDuplicateClientEmail
	}
	m.clients[c.ID] = c
	return nil
}

func (m *mockClientStore) GetClient(_ context.Context, userID, id uuid.UUID) (*models.Client, error) {
	c, ok := m.clients[id]
	if !ok || c.UserID != userID {
		return nil, db.ErrNotFound
	}
	return c, nil
}

func (m *mockClientStore) ListClients(_ context.Context, userID uuid.UUID, _, _ string, _ bool) ([]*models.Client, error) {
	var out []*models.Client
	for _, c := range m.clients {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockClientStore) UpdateClient(_ context.Context, c *models.Client) error {
	if m.dupEmail {
		return db.ErrDuplicateClientEmail
	}
	m.clients[c.ID] = c
	return nil
}

func (m *mockClientStore) ClientHasInvoices(_ context.Context, id uuid.UUID) (bool, error) {
	return m.hasInvoices[id], nil
}

func (m *mockClientStore) DeleteClient(_ context.Context, _, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	delete(m.clients, id)
	return nil
}

func (m *mockClientStore) DeactivateClient(_ context.Context, _, id uuid.UUID) error {
	m.deactivated = append(m.deactivated, id)
	m.clients[id].Active = false
	return nil
}

func (m *mockClientStore) GetClientStats(_ context.Context, _, _ uuid.UUID) (*models.ClientStats, error) {
	if m.stats != nil {
		return m.stats, nil
	}
	return &models.ClientStats{}, nil
}

func clientsRouter(store ClientStore, user *models.User) *gin.Engine {
	r := gin.New()
	group := r.Group("/api/v1")
	group.Use(func(c *gin.Context) { middleware.SetUser(c, user) })
	NewClientsHandler(store, zerolog.Nop()).RegisterRoutes(group)
	return r
}

func TestCreateClient(t *testing.T) {
	store := newMockClientStore()
	user := models.NewUser("owner@example.com", "Owner")
	r := clientsRouter(store, user)

	body, _ := json.Marshal(gin.H{"name": "Acme", "email": "billing@acme.test"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/clients", bytes.NewReader(body))
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Client
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Acme", created.Name)
	assert.Equal(t, 30, created.PaymentTerms)
	assert.True(t, created.Active)
	assert.Len(t, store.clients, 1)
}

func TestCreateClientDuplicateEmail(t *testing.T) {
	store := newMockClientStore()
	store.dupEmail = true
	r := clientsRouter(store, models.NewUser("owner@example.com", "Owner"))

	body, _ := json.Marshal(gin.H{"name": "Acme", "email": "billing@acme.test"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/clients", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestCreateClientValidation(t *testing.T) {
	r := clientsRouter(newMockClientStore(), models.NewUser("owner@example.com", "Owner"))

	body, _ := json.Marshal(gin.H{"name": "Acme", "email": "not-an-email"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/clients", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteClientWithoutInvoices(t *testing.T) {
	store := newMockClientStore()
	user := models.NewUser("owner@example.com", "Owner")
	client := models.NewClient(user.ID, "Acme", "billing@acme.test")
	store.clients[client.ID] = client
	r := clientsRouter(store, user)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/v1/clients/"+client.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":true`)
	assert.Equal(t, []uuid.UUID{client.ID}, store.deleted)
	assert.Empty(t, store.deactivated)
}

func TestDeleteClientWithInvoicesDeactivates(t *testing.T) {
	store := newMockClientStore()
	user := models.NewUser("owner@example.com", "Owner")
	client := models.NewClient(user.ID, "Acme", "billing@acme.test")
	store.clients[client.ID] = client
	store.hasInvoices[client.ID] = true
	r := clientsRouter(store, user)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/v1/clients/"+client.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deactivated":true`)
	assert.Empty(t, store.deleted)
	assert.False(t, client.Active)
}

func TestDeleteClientNotFound(t *testing.T) {
	r := clientsRouter(newMockClientStore(), models.NewUser("owner@example.com", "Owner"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/v1/clients/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPortalEnableIssuesToken(t *testing.T) {
	store := newMockClientStore()
	user := models.NewUser("owner@example.com", "Owner")
	client := models.NewClient(user.ID, "Acme", "billing@acme.test")
	store.clients[client.ID] = client
	r := clientsRouter(store, user)

	body, _ := json.Marshal(gin.H{"action": "enable_portal"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/v1/clients/"+client.ID.String()+"/portal", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		PortalEnabled bool   `json:"portal_enabled"`
		PortalToken   string `json:"portal_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.PortalEnabled)
	assert.Len(t, resp.PortalToken, 64)
	assert.True(t, client.PortalEnabled)
}

func TestPortalRegenerateReplacesToken(t *testing.T) {
	store := newMockClientStore()
	user := models.NewUser("owner@example.com", "Owner")
	client := models.NewClient(user.ID, "Acme", "billing@acme.test")
	client.PortalEnabled = true
	client.PortalToken = "old-token"
	store.clients[client.ID] = client
	r := clientsRouter(store, user)

	body, _ := json.Marshal(gin.H{"action": "regenerate_token"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/v1/clients/"+client.ID.String()+"/portal", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "old-token", client.PortalToken)
	assert.True(t, client.PortalEnabled)
}

func TestPortalRegenerateRequiresEnabled(t *testing.T) {
	store := newMockClientStore()
	user := models.NewUser("owner@example.com", "Owner")
	client := models.NewClient(user.ID, "Acme", "billing@acme.test")
	store.clients[client.ID] = client
	r := clientsRouter(store, user)

	body, _ := json.Marshal(gin.H{"action": "regenerate_token"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/v1/clients/"+client.ID.String()+"/portal", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortalDisableClearsToken(t *testing.T) {
	store := newMockClientStore()
	user := models.NewUser("owner@example.com", "Owner")
	client := models.NewClient(user.ID, "Acme", "billing@acme.test")
	client.PortalEnabled = true
	client.PortalToken = "old-token"
	store.clients[client.ID] = client
	r := clientsRouter(store, user)

	body, _ := json.Marshal(gin.H{"action": "disable_portal"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/v1/clients/"+client.ID.String()+"/portal", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, client.PortalEnabled)
	assert.Empty(t, client.PortalToken)
	assert.NotContains(t, rec.Body.String(), "portal_token")
}

func TestPortalRejectsUnknownAction(t *testing.T) {
	store := newMockClientStore()
	user := models.NewUser("owner@example.com", "Owner")
	client := models.NewClient(user.ID, "Acme", "billing@acme.test")
	store.clients[client.ID] = client
	r := clientsRouter(store, user)

	body, _ := json.Marshal(gin.H{"action": "explode"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/v1/clients/"+client.ID.String()+"/portal", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetClientScopedToUser(t *testing.T) {
	store := newMockClientStore()
	owner := models.NewUser("owner@example.com", "Owner")
	other := models.NewUser("other@example.com", "Other")
	client := models.NewClient(owner.ID, "Acme", "billing@acme.test")
	store.clients[client.ID] = client

	r := clientsRouter(store, other)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/clients/"+client.ID.String(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
