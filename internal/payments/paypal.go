package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/craudioviz/invoicer/internal/models"
)

// PayPalVerifier authenticates inbound PayPal webhooks through the
// verify-webhook-signature API. When no credentials are configured the
// verifier accepts everything, matching a development setup with webhooks
// pointed at a sandbox.
type PayPalVerifier struct {
	clientID  string
	secret    string
	webhookID string
	baseURL   string
	client    *http.Client
	logger    zerolog.Logger
}

// NewPayPalVerifier creates a verifier. Empty credentials disable
// verification.
func NewPayPalVerifier(clientID, secret, webhookID, baseURL string, logger zerolog.Logger) *PayPalVerifier {
	if baseURL == "" {
		baseURL = "https://api-m.paypal.com"
	}
	return &PayPalVerifier{
		clientID:  clientID,
		secret:    secret,
		webhookID: webhookID,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger.With().Str("component", "paypal").Logger(),
	}
}

// Configured reports whether API credentials are present.
func (v *PayPalVerifier) Configured() bool {
	return v.clientID != "" && v.secret != "" && v.webhookID != ""
}

// Verify checks the webhook transmission headers against the raw body. An
// unconfigured verifier accepts the event.
func (v *PayPalVerifier) Verify(ctx context.Context, headers http.Header, body []byte) error {
	if !v.Configured() {
		v.logger.Warn().Msg("paypal verification not configured, accepting webhook")
		return nil
	}

	token, err := v.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("paypal oauth: %w", err)
	}

	var event json.RawMessage = body
	reqBody, err := json.Marshal(map[string]any{
		"auth_algo":         headers.Get("Paypal-Auth-Algo"),
		"cert_url":          headers.Get("Paypal-Cert-Url"),
		"transmission_id":   headers.Get("Paypal-Transmission-Id"),
		"transmission_sig":  headers.Get("Paypal-Transmission-Sig"),
		"transmission_time": headers.Get("Paypal-Transmission-Time"),
		"webhook_id":        v.webhookID,
		"webhook_event":     event,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.baseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("verification API returned status %d", resp.StatusCode)
	}

	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if out.VerificationStatus != "SUCCESS" {
		return fmt.Errorf("verification status %q", out.VerificationStatus)
	}
	return nil
}

func (v *PayPalVerifier) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(v.clientID, v.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}
	return out.AccessToken, nil
}

// paypalEvent is the subset of a PayPal webhook envelope we read.
type paypalEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID     string `json:"id"`
		Amount struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
		CustomID      string `json:"custom_id"`
		StatusDetails struct {
			Reason string `json:"reason"`
		} `json:"status_details"`
	} `json:"resource"`
}

// ParsePayPalEvent normalizes a verified PayPal payload. A nil Event with nil
// error means the event type is not one we act on.
func ParsePayPalEvent(payload []byte) (*Event, error) {
	var raw paypalEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode paypal event: %w", err)
	}

	var kind EventKind
	switch raw.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		kind = EventCaptureSucceeded
	case "PAYMENT.CAPTURE.DENIED":
		kind = EventCaptureFailed
	case "PAYMENT.CAPTURE.REFUNDED":
		kind = EventRefund
	default:
		return nil, nil
	}

	invoiceID, err := uuid.Parse(raw.Resource.CustomID)
	if err != nil {
		return nil, fmt.Errorf("paypal event %s has no usable custom_id", raw.ID)
	}

	amount, err := decimal.NewFromString(raw.Resource.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("paypal event %s has malformed amount %q", raw.ID, raw.Resource.Amount.Value)
	}

	ev := &Event{
		Kind:          kind,
		InvoiceID:     invoiceID,
		Amount:        amount,
		Currency:      strings.ToUpper(raw.Resource.Amount.CurrencyCode),
		Method:        models.PaymentMethodPayPal,
		TransactionID: raw.Resource.ID,
		ErrMessage:    raw.Resource.StatusDetails.Reason,
	}
	if kind == EventRefund {
		ev.TransactionID = "refund_" + raw.Resource.ID
	}
	return ev, nil
}
