package notifications

import (
	"bytes"
	"html/template"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPConfigValidate(t *testing.T) {
	valid := SMTPConfig{Host: "smtp.example.com", Port: 587, From: "billing@example.com"}
	assert.NoError(t, valid.Validate())

	missingHost := valid
	missingHost.Host = ""
	assert.Error(t, missingHost.Validate())

	missingPort := valid
	missingPort.Port = 0
	assert.Error(t, missingPort.Validate())

	missingFrom := valid
	missingFrom.From = ""
	assert.Error(t, missingFrom.Validate())
}

func TestNewEmailServiceRejectsInvalidConfig(t *testing.T) {
	_, err := NewEmailService(SMTPConfig{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestInvoiceTemplateRenders(t *testing.T) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	require.NoError(t, err)

	data := InvoiceEmailData{
		ClientName:       "Acme Corp",
		BusinessName:     "CR Audio Video",
		InvoiceNumber:    "INV-58291042",
		InvoiceDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:          time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		TotalFormatted:   "$1,200.00",
		BalanceFormatted: "$1,200.00",
		PaymentLink:      "https://pay.example.com/abc",
	}

	var out bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&out, "invoice.html", data))

	html := out.String()
	assert.Contains(t, html, "INV-58291042")
	assert.Contains(t, html, "Acme Corp")
	assert.Contains(t, html, "$1,200.00")
	assert.Contains(t, html, "Jan 31, 2025")
	assert.Contains(t, html, "https://pay.example.com/abc")
}

func TestInvoiceTemplateOmitsEmptyOptionalFields(t *testing.T) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&out, "invoice.html", InvoiceEmailData{
		ClientName:    "Acme Corp",
		InvoiceNumber: "INV-1",
	}))
	assert.NotContains(t, out.String(), "Pay Now")
	assert.NotContains(t, out.String(), "class=\"notes\"")
}

func TestPaymentReceiptTemplateRenders(t *testing.T) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&out, "payment_received.html", PaymentReceiptData{
		ClientName:      "Acme Corp",
		InvoiceNumber:   "INV-58291042",
		AmountFormatted: "$600.00",
		FullyPaid:       true,
	}))
	html := out.String()
	assert.Contains(t, html, "$600.00")
	assert.Contains(t, html, "paid in full")
	assert.NotContains(t, html, "Remaining balance")

	out.Reset()
	require.NoError(t, tmpl.ExecuteTemplate(&out, "payment_received.html", PaymentReceiptData{
		ClientName:       "Acme Corp",
		InvoiceNumber:    "INV-58291042",
		AmountFormatted:  "$600.00",
		BalanceFormatted: "$400.00",
	}))
	assert.Contains(t, out.String(), "Remaining balance")
	assert.Contains(t, out.String(), "$400.00")
}

func TestBuildMessageHeaders(t *testing.T) {
	svc := &EmailService{config: SMTPConfig{From: "billing@example.com"}, logger: zerolog.Nop()}
	msg := string(svc.buildMessage([]string{"client@example.com"}, "Invoice INV-1", "<p>hi</p>"))
	assert.Contains(t, msg, "From: billing@example.com\r\n")
	assert.Contains(t, msg, "To: client@example.com\r\n")
	assert.Contains(t, msg, "Subject: Invoice INV-1\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
}
