package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/craudioviz/invoicer/internal/metrics"
	"github.com/craudioviz/invoicer/internal/payments"
)

// maxWebhookBody bounds processor payloads; real events are a few KB.
const maxWebhookBody = 1 << 20

// EventApplier applies a parsed processor event to the ledger.
type EventApplier interface {
	Apply(ctx context.Context, ev payments.Event) error
}

// WebhookVerifier checks PayPal transmission signatures.
type WebhookVerifier interface {
	Verify(ctx context.Context, headers http.Header, body []byte) error
}

// WebhooksHandler consumes payment-processor callbacks. Verified events are
// always acknowledged with 200, including unknown kinds and duplicates, so
// processors do not retry work that has already been absorbed.
type WebhooksHandler struct {
	applier      EventApplier
	stripeSecret string
	paypal       WebhookVerifier
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

// NewWebhooksHandler creates a new webhooks handler. metrics may be nil.
func NewWebhooksHandler(applier EventApplier, stripeSecret string, paypal WebhookVerifier, m *metrics.Metrics, logger zerolog.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		applier:      applier,
		stripeSecret: stripeSecret,
		paypal:       paypal,
		metrics:      m,
		logger:       logger.With().Str("component", "webhooks_handler").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers webhook routes on the given router group.
func (h *WebhooksHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/stripe", h.Stripe)
	r.POST("/webhooks/paypal", h.PayPal)
}

// Stripe handles Stripe webhook deliveries.
func (h *WebhooksHandler) Stripe(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if err := payments.VerifyStripeSignature(body, c.GetHeader("Stripe-Signature"), h.stripeSecret, h.now()); err != nil {
		h.logger.Warn().Err(err).Msg("Rejected stripe webhook")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	ev, err := payments.ParseStripeEvent(body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Malformed stripe event")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	h.apply(c, "stripe", ev)
}

// PayPal handles PayPal webhook deliveries.
func (h *WebhooksHandler) PayPal(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if err := h.paypal.Verify(c.Request.Context(), c.Request.Header, body); err != nil {
		h.logger.Warn().Err(err).Msg("Rejected paypal webhook")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	ev, err := payments.ParsePayPalEvent(body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Malformed paypal event")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	h.apply(c, "paypal", ev)
}

func (h *WebhooksHandler) apply(c *gin.Context, processor string, ev *payments.Event) {
	// Unrecognized event types are acknowledged so the processor stops
	// redelivering them.
	if ev == nil {
		if h.metrics != nil {
			h.metrics.WebhookEvents.WithLabelValues(processor, "ignored").Inc()
		}
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues(processor, string(ev.Kind)).Inc()
	}

	if err := h.applier.Apply(c.Request.Context(), *ev); err != nil {
		if h.metrics != nil {
			h.metrics.PaymentsApplied.WithLabelValues("error").Inc()
		}
		h.logger.Error().Err(err).
			Str("processor", processor).
			Str("transaction_id", ev.TransactionID).
			Msg("Failed to apply payment event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply event"})
		return
	}

	if h.metrics != nil {
		h.metrics.PaymentsApplied.WithLabelValues("applied").Inc()
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
