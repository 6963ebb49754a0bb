package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayPalVerifyUnconfiguredAccepts(t *testing.T) {
	v := NewPayPalVerifier("", "", "", "", zerolog.Nop())
	assert.False(t, v.Configured())
	assert.NoError(t, v.Verify(context.Background(), http.Header{}, []byte(`{}`)))
}

func paypalAPIServer(t *testing.T, status string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "token-1"})
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "wh-1", body["webhook_id"])
		json.NewEncoder(w).Encode(map[string]string{"verification_status": status})
	})
	return httptest.NewServer(mux)
}

func TestPayPalVerifySuccess(t *testing.T) {
	server := paypalAPIServer(t, "SUCCESS")
	defer server.Close()

	v := NewPayPalVerifier("client", "secret", "wh-1", server.URL, zerolog.Nop())
	headers := http.Header{}
	headers.Set("Paypal-Transmission-Id", "tid-1")
	assert.NoError(t, v.Verify(context.Background(), headers, []byte(`{"id":"WH-1"}`)))
}

func TestPayPalVerifyFailure(t *testing.T) {
	server := paypalAPIServer(t, "FAILURE")
	defer server.Close()

	v := NewPayPalVerifier("client", "secret", "wh-1", server.URL, zerolog.Nop())
	assert.Error(t, v.Verify(context.Background(), http.Header{}, []byte(`{}`)))
}

func TestParsePayPalCaptureCompleted(t *testing.T) {
	invID := uuid.New()
	payload := []byte(fmt.Sprintf(`{
		"id": "WH-1",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "CAP-1",
			"custom_id": %q,
			"amount": {"currency_code": "usd", "value": "125.50"}
		}
	}`, invID))

	ev, err := ParsePayPalEvent(payload)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, EventCaptureSucceeded, ev.Kind)
	assert.Equal(t, invID, ev.InvoiceID)
	assert.True(t, ev.Amount.Equal(decimal.NewFromFloat(125.5)))
	assert.Equal(t, "USD", ev.Currency)
	assert.Equal(t, "CAP-1", ev.TransactionID)
}

func TestParsePayPalRefundPrefixesTransaction(t *testing.T) {
	invID := uuid.New()
	payload := []byte(fmt.Sprintf(`{
		"event_type": "PAYMENT.CAPTURE.REFUNDED",
		"resource": {
			"id": "REF-1",
			"custom_id": %q,
			"amount": {"currency_code": "USD", "value": "50.00"}
		}
	}`, invID))

	ev, err := ParsePayPalEvent(payload)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, EventRefund, ev.Kind)
	assert.Equal(t, "refund_REF-1", ev.TransactionID)
}

func TestParsePayPalIgnoredType(t *testing.T) {
	ev, err := ParsePayPalEvent([]byte(`{"event_type": "BILLING.PLAN.CREATED", "resource": {}}`))
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestParsePayPalBadCustomID(t *testing.T) {
	payload := []byte(`{
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {"id": "CAP-2", "custom_id": "order-42", "amount": {"currency_code": "USD", "value": "10.00"}}
	}`)
	_, err := ParsePayPalEvent(payload)
	assert.Error(t, err)
}
