package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client represents a billing counterparty owned by a user.
type Client struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	Company         string     `json:"company,omitempty"`
	Website         string     `json:"website,omitempty"`
	Address         string     `json:"address,omitempty"`
	City            string     `json:"city,omitempty"`
	State           string     `json:"state,omitempty"`
	Zip             string     `json:"zip,omitempty"`
	Country         string     `json:"country,omitempty"`
	TaxID           string     `json:"tax_id,omitempty"`
	PaymentTerms    int        `json:"payment_terms"` // Net days, defaults to 30
	DefaultCurrency string     `json:"default_currency"`
	Notes           string     `json:"notes,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	PortalToken     string     `json:"-"` // Opaque portal credential, never serialized
	PortalEnabled   bool       `json:"portal_enabled"`
	Active          bool       `json:"active"`
	LastInvoiceAt   *time.Time `json:"last_invoice_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewClient creates a new active Client with default payment terms.
func NewClient(userID uuid.UUID, name, email string) *Client {
	now := time.Now().UTC()
	return &Client{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            name,
		Email:           email,
		PaymentTerms:    30,
		DefaultCurrency: "USD",
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewPortalToken generates a 32-byte random hex token for portal access.
func NewPortalToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ClientStats holds aggregated invoicing figures for a client, computed on
// read from the invoice table.
type ClientStats struct {
	TotalInvoiced decimal.Decimal `json:"total_invoiced"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	InvoiceCount  int             `json:"invoice_count"`
	PaidCount     int             `json:"paid_count"`
	OverdueCount  int             `json:"overdue_count"`
}

// ClientWithStats pairs a client with its aggregated figures for display.
type ClientWithStats struct {
	Client
	Stats ClientStats `json:"stats"`
}

// PortalProfile is the redacted client view exposed through the portal.
// It deliberately omits internal notes, tags and owner references.
type PortalProfile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
}

// ToPortalProfile converts a Client to its redacted portal representation.
func (c *Client) ToPortalProfile() PortalProfile {
	return PortalProfile{
		Name:    c.Name,
		Email:   c.Email,
		Company: c.Company,
	}
}

// CreateClientRequest is the request body for creating a client.
type CreateClientRequest struct {
	Name            string   `json:"name" binding:"required,min=1,max=255"`
	Email           string   `json:"email" binding:"required,email"`
	Phone           string   `json:"phone,omitempty"`
	Company         string   `json:"company,omitempty"`
	Website         string   `json:"website,omitempty"`
	Address         string   `json:"address,omitempty"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	Zip             string   `json:"zip,omitempty"`
	Country         string   `json:"country,omitempty"`
	TaxID           string   `json:"tax_id,omitempty"`
	PaymentTerms    *int     `json:"payment_terms,omitempty"`
	DefaultCurrency string   `json:"default_currency,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// UpdateClientRequest is the request body for updating a client.
type UpdateClientRequest struct {
	Name            *string  `json:"name,omitempty"`
	Email           *string  `json:"email,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	Company         *string  `json:"company,omitempty"`
	Website         *string  `json:"website,omitempty"`
	Address         *string  `json:"address,omitempty"`
	City            *string  `json:"city,omitempty"`
	State           *string  `json:"state,omitempty"`
	Zip             *string  `json:"zip,omitempty"`
	Country         *string  `json:"country,omitempty"`
	TaxID           *string  `json:"tax_id,omitempty"`
	PaymentTerms    *int     `json:"payment_terms,omitempty"`
	DefaultCurrency *string  `json:"default_currency,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// PortalAction identifies a portal management operation on a client.
type PortalAction string

const (
	// PortalActionEnable enables portal access and issues a fresh token.
	PortalActionEnable PortalAction = "enable_portal"
	// PortalActionDisable disables portal access and clears the token.
	PortalActionDisable PortalAction = "disable_portal"
	// PortalActionRegenerate replaces the portal token, invalidating the old one.
	PortalActionRegenerate PortalAction = "regenerate_token"
)

// PortalActionRequest is the tagged-union request body for portal actions.
type PortalActionRequest struct {
	Action PortalAction `json:"action" binding:"required,oneof=enable_portal disable_portal regenerate_token"`
}
