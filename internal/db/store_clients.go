package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craudioviz/invoicer/internal/models"
)

// ErrDuplicateClientEmail is returned when a user already has a client with
// the given email address.
var ErrDuplicateClientEmail = errors.New("client email already exists")

const clientColumns = `
	id, user_id, name, email, phone, company, website, address, city, state,
	zip, country, tax_id, payment_terms, default_currency, notes, tags,
	portal_token, portal_enabled, active, last_invoice_at, created_at, updated_at`

func scanClient(row pgx.Row) (*models.Client, error) {
	var c models.Client
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Website,
		&c.Address, &c.City, &c.State, &c.Zip, &c.Country, &c.TaxID,
		&c.PaymentTerms, &c.DefaultCurrency, &c.Notes, &c.Tags,
		&c.PortalToken, &c.PortalEnabled, &c.Active, &c.LastInvoiceAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	return &c, nil
}

// CreateClient inserts a new client. Email must be unique per user.
func (db *DB) CreateClient(ctx context.Context, c *models.Client) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO clients (
			id, user_id, name, email, phone, company, website, address, city,
			state, zip, country, tax_id, payment_terms, default_currency,
			notes, tags, portal_token, portal_enabled, active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22
		)
	`, c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Company, c.Website,
		c.Address, c.City, c.State, c.Zip, c.Country, c.TaxID, c.PaymentTerms,
		c.DefaultCurrency, c.Notes, c.Tags, c.PortalToken, c.PortalEnabled,
		c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "clients_user_email_unique") {
			return ErrDuplicateClientEmail
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// GetClient returns a client owned by the user.
func (db *DB) GetClient(ctx context.Context, userID, id uuid.UUID) (*models.Client, error) {
	return scanClient(db.Pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1 AND user_id = $2
	`, id, userID))
}

// GetClientByEmail returns the user's client with the given email, if any.
func (db *DB) GetClientByEmail(ctx context.Context, userID uuid.UUID, email string) (*models.Client, error) {
	return scanClient(db.Pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE user_id = $1 AND LOWER(email) = LOWER($2)
	`, userID, email))
}

// GetClientByPortalToken returns the client bound to an enabled portal token.
func (db *DB) GetClientByPortalToken(ctx context.Context, token string) (*models.Client, error) {
	return scanClient(db.Pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE portal_token = $1 AND portal_enabled = TRUE AND active = TRUE
	`, token))
}

// ListClients returns the user's clients, optionally filtered by a name/email/
// company search term or a tag. Inactive clients are included only on request.
func (db *DB) ListClients(ctx context.Context, userID uuid.UUID, search, tag string, includeInactive bool) ([]*models.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE user_id = $1`
	args := []any{userID}

	if !includeInactive {
		query += ` AND active = TRUE`
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		query += fmt.Sprintf(` AND (name ILIKE $%d OR email ILIKE $%d OR company ILIKE $%d)`,
			len(args), len(args), len(args))
	}
	if tag != "" {
		args = append(args, tag)
		query += fmt.Sprintf(` AND $%d = ANY(tags)`, len(args))
	}
	query += ` ORDER BY name`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// UpdateClient persists all mutable client fields.
func (db *DB) UpdateClient(ctx context.Context, c *models.Client) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE clients SET
			name = $3, email = $4, phone = $5, company = $6, website = $7,
			address = $8, city = $9, state = $10, zip = $11, country = $12,
			tax_id = $13, payment_terms = $14, default_currency = $15,
			notes = $16, tags = $17, portal_token = $18, portal_enabled = $19,
			active = $20, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Company, c.Website,
		c.Address, c.City, c.State, c.Zip, c.Country, c.TaxID, c.PaymentTerms,
		c.DefaultCurrency, c.Notes, c.Tags, c.PortalToken, c.PortalEnabled, c.Active)
	if err != nil {
		if isUniqueViolation(err, "clients_user_email_unique") {
			return ErrDuplicateClientEmail
		}
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClientHasInvoices reports whether any invoice references the client.
func (db *DB) ClientHasInvoices(ctx context.Context, clientID uuid.UUID) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM invoices WHERE client_id = $1)", clientID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check client invoices: %w", err)
	}
	return exists, nil
}

// DeleteClient hard-deletes a client. Call only after ClientHasInvoices
// reports false; the foreign key still backstops a race.
func (db *DB) DeleteClient(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		"DELETE FROM clients WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateClient soft-deletes a client that still has invoices.
func (db *DB) DeactivateClient(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE clients SET active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetClientStats aggregates invoice totals for one client. Overdue counts are
// derived from due date and balance at query time.
func (db *DB) GetClientStats(ctx context.Context, userID, clientID uuid.UUID) (*models.ClientStats, error) {
	var stats models.ClientStats
	err := db.Pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total), 0),
			COALESCE(SUM(amount_paid), 0),
			COALESCE(SUM(balance_due), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*) FILTER (WHERE balance_due > 0 AND due_date < CURRENT_DATE
				AND status NOT IN ('draft', 'cancelled', 'refunded'))
		FROM invoices
		WHERE user_id = $1 AND client_id = $2 AND status <> 'cancelled'
	`, userID, clientID).Scan(
		&stats.TotalInvoiced, &stats.TotalPaid, &stats.Outstanding,
		&stats.InvoiceCount, &stats.PaidCount, &stats.OverdueCount,
	)
	if err != nil {
		return nil, fmt.Errorf("client stats: %w", err)
	}
	return &stats, nil
}
