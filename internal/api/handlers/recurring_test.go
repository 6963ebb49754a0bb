package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craudioviz/invoicer/internal/api/middleware"
	"github.com/craudioviz/invoicer/internal/db"
	"github.com/craudioviz/invoicer/internal/models"
)

type mockRecurringStore struct {
	schedules map[uuid.UUID]*models.RecurringInvoice
	invoices  map[uuid.UUID]*models.Invoice
	clients   map[uuid.UUID]*models.Client
	statuses  []models.RecurringStatus
}

func newMockRecurringStore() *mockRecurringStore {
	return &mockRecurringStore{
		schedules: make(map[uuid.UUID]*models.RecurringInvoice),
		invoices:  make(map[uuid.UUID]*models.Invoice),
		clients:   make(map[uuid.UUID]*models.Client),
	}
}

func (m *mockRecurringStore) CreateRecurringInvoice(_ context.Context, r *models.RecurringInvoice) error {
	m.schedules[r.ID] = r
	return nil
}

func (m *mockRecurringStore) GetRecurringInvoice(_ context.Context, userID, id uuid.UUID) (*models.RecurringInvoice, error) {
	r, ok := m.schedules[id]
	if !ok || r.UserID != userID {
		return nil, db.ErrNotFound
	}
	return r, nil
}

func (m *mockRecurringStore) ListRecurringInvoices(_ context.Context, userID uuid.UUID) ([]*models.RecurringInvoiceWithRefs, error) {
	var out []*models.RecurringInvoiceWithRefs
	for _, r := range m.schedules {
		if r.UserID == userID {
			out = append(out, &models.RecurringInvoiceWithRefs{RecurringInvoice: *r})
		}
	}
	return out, nil
}

func (m *mockRecurringStore) UpdateRecurringInvoice(_ context.Context, r *models.RecurringInvoice) error {
	m.schedules[r.ID] = r
	return nil
}

func (m *mockRecurringStore) SetRecurringStatus(_ context.Context, _, id uuid.UUID, status models.RecurringStatus) error {
	m.schedules[id].Status = status
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockRecurringStore) GetInvoiceByID(_ context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.UserID != userID {
		return nil, db.ErrNotFound
	}
	return inv, nil
}

func (m *mockRecurringStore) GetClient(_ context.Context, userID, id uuid.UUID) (*models.Client, error) {
	c, ok := m.clients[id]
	if !ok || c.UserID != userID {
		return nil, db.ErrNotFound
	}
	return c, nil
}

type mockRunner struct {
	summary   *models.RunSummary
	generated *models.Invoice
	genErr    error
	runs      int
}

func (m *mockRunner) ProcessDue(_ context.Context) *models.RunSummary {
	m.runs++
	if m.summary != nil {
		return m.summary
	}
	return &models.RunSummary{}
}

func (m *mockRunner) GenerateNow(_ context.Context, _, _ uuid.UUID) (*models.Invoice, error) {
	if m.genErr != nil {
		return nil, m.genErr
	}
	return m.generated, nil
}

func recurringRouter(store RecurringStore, runner ScheduleRunner, user *models.User) *gin.Engine {
	r := gin.New()
	group := r.Group("/api/v1")
	group.Use(func(c *gin.Context) { middleware.SetUser(c, user) })
	h := NewRecurringHandler(store, runner, zerolog.Nop())
	h.RegisterRoutes(group)
	return r
}

func seedSchedule(store *mockRecurringStore, user *models.User) *models.RecurringInvoice {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := models.NewRecurringInvoice(user.ID, uuid.New(), uuid.New(), models.FrequencyMonthly, start)
	store.schedules[rec.ID] = rec
	return rec
}

func TestCreateRecurringValidatesFrequency(t *testing.T) {
	user := models.NewUser("owner@example.com", "Owner")
	store := newMockRecurringStore()
	r := recurringRouter(store, &mockRunner{}, user)

	body, _ := json.Marshal(gin.H{
		"template_invoice_id": uuid.New(),
		"client_id":           uuid.New(),
		"frequency":           "fortnightly",
		"start_date":          "2025-03-01T00:00:00Z",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/recurring", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid frequency")
}

func TestCreateRecurringSetsInitialNextRun(t *testing.T) {
	user := models.NewUser("owner@example.com", "Owner")
	store := newMockRecurringStore()

	now := time.Now().UTC()
	template := models.NewInvoice(user.ID, uuid.New(), "INV-T", "USD", now, now.AddDate(0, 0, 30))
	store.invoices[template.ID] = template
	client := models.NewClient(user.ID, "Acme", "billing@acme.test")
	store.clients[client.ID] = client

	r := recurringRouter(store, &mockRunner{}, user)

	body, _ := json.Marshal(gin.H{
		"template_invoice_id": template.ID,
		"client_id":           client.ID,
		"frequency":           "monthly",
		"start_date":          "2025-03-01T00:00:00Z",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/recurring", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.RecurringInvoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.RecurringStatusActive, created.Status)
	assert.Equal(t, created.StartDate, created.NextRunDate)
}

func TestPauseResumeCancel(t *testing.T) {
	user := models.NewUser("owner@example.com", "Owner")
	store := newMockRecurringStore()
	rec := seedSchedule(store, user)
	r := recurringRouter(store, &mockRunner{}, user)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/recurring/"+rec.ID.String()+"/pause", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RecurringStatusPaused, rec.Status)

	// Pausing again is an invalid transition.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/recurring/"+rec.ID.String()+"/pause", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/recurring/"+rec.ID.String()+"/resume", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RecurringStatusActive, rec.Status)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/recurring/"+rec.ID.String()+"/cancel", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RecurringStatusCancelled, rec.Status)

	// Cancelled schedules cannot be resumed.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/recurring/"+rec.ID.String()+"/resume", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateFrequencyRecomputesNextRun(t *testing.T) {
	user := models.NewUser("owner@example.com", "Owner")
	store := newMockRecurringStore()
	rec := seedSchedule(store, user)
	lastRun := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rec.LastRunDate = &lastRun
	rec.NextRunDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	r := recurringRouter(store, &mockRunner{}, user)

	body, _ := json.Marshal(gin.H{"frequency": "weekly"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/recurring/"+rec.ID.String(), bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.FrequencyWeekly, rec.Frequency)
	assert.Equal(t, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), rec.NextRunDate)
}

func TestGenerateNow(t *testing.T) {
	user := models.NewUser("owner@example.com", "Owner")
	store := newMockRecurringStore()
	rec := seedSchedule(store, user)

	now := time.Now().UTC()
	generated := models.NewInvoice(user.ID, rec.ClientID, "INV-GEN", "USD", now, now.AddDate(0, 0, 30))
	runner := &mockRunner{generated: generated}
	r := recurringRouter(store, runner, user)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/recurring/"+rec.ID.String()+"/generate", nil))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "INV-GEN")
}

func TestGenerateNowNotFound(t *testing.T) {
	user := models.NewUser("owner@example.com", "Owner")
	runner := &mockRunner{genErr: db.ErrNotFound}
	r := recurringRouter(newMockRecurringStore(), runner, user)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/recurring/"+uuid.NewString()+"/generate", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateNowInactive(t *testing.T) {
	user := models.NewUser("owner@example.com", "Owner")
	runner := &mockRunner{genErr: errors.New("schedule is not active")}
	r := recurringRouter(newMockRecurringStore(), runner, user)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/recurring/"+uuid.NewString()+"/generate", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunEndpointGuardedByCronSecret(t *testing.T) {
	runner := &mockRunner{summary: &models.RunSummary{Processed: 2, InvoicesCreated: []string{"INV-A", "INV-B"}}}
	h := NewRecurringHandler(newMockRecurringStore(), runner, zerolog.Nop())

	r := gin.New()
	h.RegisterRunRoute(r.Group("/api/v1"), middleware.CronSecret("s3cret"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/v1/recurring/run", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, runner.runs)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("PUT", "/api/v1/recurring/run", nil)
	req.Header.Set("X-Cron-Secret", "s3cret")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runner.runs)
	assert.Contains(t, w.Body.String(), `"processed":2`)
	assert.Contains(t, w.Body.String(), "INV-A")
}
