package recurring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craudioviz/invoicer/internal/models"
)

type mockStore struct {
	due       []*models.RecurringInvoice
	schedules map[uuid.UUID]*models.RecurringInvoice
	templates map[uuid.UUID]*models.Invoice

	created   []*models.Invoice
	completed []uuid.UUID

	dueErr      error
	templateErr error
	createErr   error
	// advanceLost simulates a concurrent trigger winning the conditional
	// schedule advance.
	advanceLost bool
}

func newMockStore() *mockStore {
	return &mockStore{
		schedules: map[uuid.UUID]*models.RecurringInvoice{},
		templates: map[uuid.UUID]*models.Invoice{},
	}
}

func (m *mockStore) DueRecurringInvoices(_ context.Context, today time.Time) ([]*models.RecurringInvoice, error) {
	if m.dueErr != nil {
		return nil, m.dueErr
	}
	var due []*models.RecurringInvoice
	for _, rec := range m.due {
		if rec.Status == models.RecurringStatusActive && !rec.NextRunDate.After(today) {
			due = append(due, rec)
		}
	}
	return due, nil
}

func (m *mockStore) GetRecurringInvoice(_ context.Context, userID, id uuid.UUID) (*models.RecurringInvoice, error) {
	rec, ok := m.schedules[id]
	if !ok || rec.UserID != userID {
		return nil, errors.New("recurring invoice not found")
	}
	return rec, nil
}

func (m *mockStore) GetInvoiceByID(_ context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	if m.templateErr != nil {
		return nil, m.templateErr
	}
	inv, ok := m.templates[id]
	if !ok || inv.UserID != userID {
		return nil, errors.New("invoice not found")
	}
	return inv, nil
}

func (m *mockStore) InvoiceNumberExists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (m *mockStore) CreateGeneratedInvoice(_ context.Context, inv *models.Invoice, scheduleID uuid.UUID, expectedRun, nextRun, ranAt time.Time) (bool, error) {
	if m.createErr != nil {
		return false, m.createErr
	}
	if m.advanceLost {
		return false, nil
	}
	rec := m.schedules[scheduleID]
	if rec != nil {
		if !rec.NextRunDate.Equal(expectedRun) {
			return false, nil
		}
		rec.NextRunDate = nextRun
		rec.LastRunDate = &ranAt
		rec.InvoicesGenerated++
		rec.TotalAmountGenerated = rec.TotalAmountGenerated.Add(inv.Total)
	}
	m.created = append(m.created, inv)
	return true, nil
}

func (m *mockStore) CompleteRecurringInvoice(_ context.Context, id uuid.UUID) error {
	m.completed = append(m.completed, id)
	if rec, ok := m.schedules[id]; ok {
		rec.Status = models.RecurringStatusCompleted
	}
	return nil
}

type mockSender struct {
	sent chan *models.Invoice
}

func (m *mockSender) SendGeneratedInvoice(_ context.Context, inv *models.Invoice) error {
	m.sent <- inv
	return nil
}

func fixture(store *mockStore, freq models.Frequency, nextRun time.Time) *models.RecurringInvoice {
	userID := uuid.New()
	tmpl := models.NewInvoice(userID, uuid.New(), "INV-00000001", "USD",
		day(2024, 12, 1), day(2024, 12, 31))
	tmpl.Items = []models.LineItem{{
		ID:          uuid.New(),
		Description: "Monthly retainer",
		Quantity:    decimal.NewFromInt(1),
		Rate:        decimal.NewFromInt(500),
	}}

	rec := models.NewRecurringInvoice(userID, tmpl.ID, tmpl.ClientID, freq, nextRun)
	store.schedules[rec.ID] = rec
	store.templates[tmpl.ID] = tmpl
	store.due = append(store.due, rec)
	return rec
}

func testScheduler(store *mockStore, sender Sender, now time.Time) *Scheduler {
	s := NewScheduler(store, sender, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestProcessDueMonthlyWalkthrough(t *testing.T) {
	// A monthly schedule starting 2025-01-01 fires on its start day: the
	// draft is dated that day, due 30 days later, and the schedule advances
	// to 2025-02-01.
	store := newMockStore()
	start := day(2025, 1, 1)
	rec := fixture(store, models.FrequencyMonthly, start)

	s := testScheduler(store, nil, start)
	summary := s.ProcessDue(context.Background())

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.InvoicesCreated, 1)

	require.Len(t, store.created, 1)
	inv := store.created[0]
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, start, inv.InvoiceDate)
	assert.Equal(t, day(2025, 1, 31), inv.DueDate)
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(500)))
	assert.True(t, inv.BalanceDue.Equal(decimal.NewFromInt(500)))
	require.NotNil(t, inv.RecurringInvoiceID)
	assert.Equal(t, rec.ID, *inv.RecurringInvoiceID)

	assert.Equal(t, day(2025, 2, 1), rec.NextRunDate)
	assert.Equal(t, 1, rec.InvoicesGenerated)
	assert.True(t, rec.TotalAmountGenerated.Equal(decimal.NewFromInt(500)))
}

func TestProcessDueLaggingScheduleAdvancesPastToday(t *testing.T) {
	// A weekly schedule whose run date fell weeks behind generates exactly
	// one invoice and lands strictly in the future, so an immediate
	// retrigger has nothing to do.
	store := newMockStore()
	rec := fixture(store, models.FrequencyWeekly, day(2025, 1, 1))

	today := day(2025, 1, 20)
	s := testScheduler(store, nil, today)

	summary := s.ProcessDue(context.Background())
	assert.Equal(t, 1, summary.Processed)
	require.Len(t, store.created, 1)
	assert.Equal(t, today, store.created[0].InvoiceDate)
	assert.Equal(t, day(2025, 1, 27), rec.NextRunDate)
	assert.True(t, rec.NextRunDate.After(today))

	summary = s.ProcessDue(context.Background())
	assert.Equal(t, 0, summary.Processed)
	assert.Len(t, store.created, 1)
}

func TestProcessDueConcurrentTriggerNoDuplicate(t *testing.T) {
	store := newMockStore()
	fixture(store, models.FrequencyWeekly, day(2025, 1, 1))
	store.advanceLost = true

	s := testScheduler(store, nil, day(2025, 1, 1))
	summary := s.ProcessDue(context.Background())

	// The losing trigger reports neither success nor failure.
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, store.created)
}

func TestProcessDueExpiredScheduleCompleted(t *testing.T) {
	store := newMockStore()
	rec := fixture(store, models.FrequencyMonthly, day(2025, 1, 1))
	end := day(2025, 2, 15)
	rec.EndDate = &end

	s := testScheduler(store, nil, day(2025, 3, 1))
	summary := s.ProcessDue(context.Background())

	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, store.created)
	require.Len(t, store.completed, 1)
	assert.Equal(t, rec.ID, store.completed[0])
	assert.Equal(t, models.RecurringStatusCompleted, rec.Status)
}

func TestProcessDuePerScheduleIsolation(t *testing.T) {
	store := newMockStore()
	broken := fixture(store, models.FrequencyWeekly, day(2025, 1, 1))
	delete(store.templates, broken.TemplateInvoiceID)
	fixture(store, models.FrequencyWeekly, day(2025, 1, 1))

	s := testScheduler(store, nil, day(2025, 1, 1))
	summary := s.ProcessDue(context.Background())

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], broken.ID.String())
	assert.Len(t, store.created, 1)
}

func TestProcessDueAutoSend(t *testing.T) {
	store := newMockStore()
	rec := fixture(store, models.FrequencyMonthly, day(2025, 1, 1))
	rec.AutoSend = true
	sender := &mockSender{sent: make(chan *models.Invoice, 1)}

	s := testScheduler(store, sender, day(2025, 1, 1))
	summary := s.ProcessDue(context.Background())
	require.Equal(t, 1, summary.Processed)

	select {
	case inv := <-sender.sent:
		assert.Equal(t, store.created[0].InvoiceNumber, inv.InvoiceNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("auto-send never fired")
	}
}

func TestGenerateNow(t *testing.T) {
	store := newMockStore()
	rec := fixture(store, models.FrequencyMonthly, day(2025, 4, 1))

	s := testScheduler(store, nil, day(2025, 3, 10))
	inv, err := s.GenerateNow(context.Background(), rec.UserID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2025, 3, 10), inv.InvoiceDate)
	// Manual generation advances the schedule from today, like a scheduled run.
	assert.Equal(t, day(2025, 4, 10), rec.NextRunDate)
}

func TestGenerateNowRejectsInactive(t *testing.T) {
	store := newMockStore()
	rec := fixture(store, models.FrequencyMonthly, day(2025, 4, 1))
	rec.Status = models.RecurringStatusPaused

	s := testScheduler(store, nil, day(2025, 3, 10))
	_, err := s.GenerateNow(context.Background(), rec.UserID, rec.ID)
	assert.Error(t, err)
}

func TestGenerateNowWrongUser(t *testing.T) {
	store := newMockStore()
	rec := fixture(store, models.FrequencyMonthly, day(2025, 4, 1))

	s := testScheduler(store, nil, day(2025, 3, 10))
	_, err := s.GenerateNow(context.Background(), uuid.New(), rec.ID)
	assert.Error(t, err)
}
