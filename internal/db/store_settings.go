package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craudioviz/invoicer/internal/models"
)

// GetSettings returns the user's settings, falling back to defaults when no
// row exists yet.
func (db *DB) GetSettings(ctx context.Context, userID uuid.UUID) (*models.Settings, error) {
	var s models.Settings
	err := db.Pool.QueryRow(ctx, `
		SELECT user_id, business_name, business_email, business_address,
			business_city, business_state, business_zip, business_country,
			business_phone, business_website, default_currency,
			default_tax_rate, default_terms, default_notes, invoice_prefix,
			next_invoice_number, created_at, updated_at
		FROM settings
		WHERE user_id = $1
	`, userID).Scan(
		&s.UserID, &s.BusinessName, &s.BusinessEmail, &s.BusinessAddress,
		&s.BusinessCity, &s.BusinessState, &s.BusinessZip, &s.BusinessCountry,
		&s.BusinessPhone, &s.BusinessWebsite, &s.DefaultCurrency,
		&s.DefaultTaxRate, &s.DefaultTerms, &s.DefaultNotes, &s.InvoicePrefix,
		&s.NextInvoiceNumber, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DefaultSettings(userID), nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// UpsertSettings creates or replaces the user's settings row.
func (db *DB) UpsertSettings(ctx context.Context, s *models.Settings) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO settings (
			user_id, business_name, business_email, business_address,
			business_city, business_state, business_zip, business_country,
			business_phone, business_website, default_currency,
			default_tax_rate, default_terms, default_notes, invoice_prefix,
			next_invoice_number, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, NOW(), NOW()
		)
		ON CONFLICT (user_id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			business_email = EXCLUDED.business_email,
			business_address = EXCLUDED.business_address,
			business_city = EXCLUDED.business_city,
			business_state = EXCLUDED.business_state,
			business_zip = EXCLUDED.business_zip,
			business_country = EXCLUDED.business_country,
			business_phone = EXCLUDED.business_phone,
			business_website = EXCLUDED.business_website,
			default_currency = EXCLUDED.default_currency,
			default_tax_rate = EXCLUDED.default_tax_rate,
			default_terms = EXCLUDED.default_terms,
			default_notes = EXCLUDED.default_notes,
			invoice_prefix = EXCLUDED.invoice_prefix,
			next_invoice_number = EXCLUDED.next_invoice_number,
			updated_at = NOW()
	`, s.UserID, s.BusinessName, s.BusinessEmail, s.BusinessAddress,
		s.BusinessCity, s.BusinessState, s.BusinessZip, s.BusinessCountry,
		s.BusinessPhone, s.BusinessWebsite, s.DefaultCurrency, s.DefaultTaxRate,
		s.DefaultTerms, s.DefaultNotes, s.InvoicePrefix, s.NextInvoiceNumber)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
