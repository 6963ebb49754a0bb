package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecurringGenerated.Inc()
	m.RecurringGenerated.Inc()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RecurringGenerated))

	m.WebhookEvents.WithLabelValues("stripe", "capture_succeeded").Inc()
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.WebhookEvents.WithLabelValues("stripe", "capture_succeeded")))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(m.WebhookEvents.WithLabelValues("paypal", "refund")))

	m.PaymentsApplied.WithLabelValues("completed").Inc()
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.PaymentsApplied.WithLabelValues("completed")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	m.RecurringGenerated.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "invoicer_recurring_invoices_generated_total 1")
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewWithRegistry(reg)
	require.NoError(t, err)
	_, err = NewWithRegistry(reg)
	assert.Error(t, err)
}
