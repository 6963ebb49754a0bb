package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settings holds per-user business profile and document defaults. Values here
// pre-fill new invoices; they are passed explicitly into creation paths rather
// than read as ambient state.
type Settings struct {
	UserID            uuid.UUID       `json:"user_id"`
	BusinessName      string          `json:"business_name"`
	BusinessEmail     string          `json:"business_email"`
	BusinessAddress   string          `json:"business_address,omitempty"`
	BusinessCity      string          `json:"business_city,omitempty"`
	BusinessState     string          `json:"business_state,omitempty"`
	BusinessZip       string          `json:"business_zip,omitempty"`
	BusinessCountry   string          `json:"business_country,omitempty"`
	BusinessPhone     string          `json:"business_phone,omitempty"`
	BusinessWebsite   string          `json:"business_website,omitempty"`
	DefaultCurrency   string          `json:"default_currency"`
	DefaultTaxRate    decimal.Decimal `json:"default_tax_rate"`
	DefaultTerms      string          `json:"default_terms,omitempty"`
	DefaultNotes      string          `json:"default_notes,omitempty"`
	InvoicePrefix     string          `json:"invoice_prefix"`
	NextInvoiceNumber int             `json:"next_invoice_number"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DefaultSettings returns the settings applied before a user customizes them.
func DefaultSettings(userID uuid.UUID) *Settings {
	now := time.Now().UTC()
	return &Settings{
		UserID:            userID,
		DefaultCurrency:   "USD",
		DefaultTaxRate:    decimal.Zero,
		InvoicePrefix:     "INV",
		NextInvoiceNumber: 1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// UpdateSettingsRequest is the request body for updating settings.
type UpdateSettingsRequest struct {
	BusinessName    *string          `json:"business_name,omitempty"`
	BusinessEmail   *string          `json:"business_email,omitempty"`
	BusinessAddress *string          `json:"business_address,omitempty"`
	BusinessCity    *string          `json:"business_city,omitempty"`
	BusinessState   *string          `json:"business_state,omitempty"`
	BusinessZip     *string          `json:"business_zip,omitempty"`
	BusinessCountry *string          `json:"business_country,omitempty"`
	BusinessPhone   *string          `json:"business_phone,omitempty"`
	BusinessWebsite *string          `json:"business_website,omitempty"`
	DefaultCurrency *string          `json:"default_currency,omitempty"`
	DefaultTaxRate  *decimal.Decimal `json:"default_tax_rate,omitempty"`
	DefaultTerms    *string          `json:"default_terms,omitempty"`
	DefaultNotes    *string          `json:"default_notes,omitempty"`
	InvoicePrefix   *string          `json:"invoice_prefix,omitempty"`
}
