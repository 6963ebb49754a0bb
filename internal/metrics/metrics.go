// Package metrics provides Prometheus metrics for the invoicer server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	RecurringGenerated prometheus.Counter
	RecurringRunErrors prometheus.Counter
	WebhookEvents      *prometheus.CounterVec
	PaymentsApplied    *prometheus.CounterVec
	EmailsSent         *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New creates the metric set on a fresh registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg)
}

// NewWithRegistry creates the metric set on the given registry.
func NewWithRegistry(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: reg,
		RecurringGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoicer_recurring_invoices_generated_total",
			Help: "Invoices generated from recurring schedules.",
		}),
		RecurringRunErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoicer_recurring_run_errors_total",
			Help: "Per-schedule failures during recurring runs.",
		}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicer_webhook_events_total",
			Help: "Processor webhook events received.",
		}, []string{"processor", "kind"}),
		PaymentsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicer_payments_applied_total",
			Help: "Payment ledger entries written.",
		}, []string{"status"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicer_emails_sent_total",
			Help: "Invoice emails attempted.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoicer_http_request_duration_seconds",
			Help:    "HTTP request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	for _, c := range []prometheus.Collector{
		m.RecurringGenerated, m.RecurringRunErrors, m.WebhookEvents,
		m.PaymentsApplied, m.EmailsSent, m.RequestDuration,
		collectors.NewGoCollector(),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns the /metrics HTTP handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
