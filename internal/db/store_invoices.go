package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craudioviz/invoicer/internal/models"
)

const invoiceColumns = `
	id, user_id, client_id, invoice_number, invoice_date, due_date, status,
	currency, items, subtotal, tax_rate, tax_amount, discount_amount,
	discount_type, total, amount_paid, balance_due, notes, terms,
	payment_link, recurring_invoice_id, sent_at, viewed_at, paid_at,
	created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	var items []byte
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.ClientID, &inv.InvoiceNumber,
		&inv.InvoiceDate, &inv.DueDate, &inv.Status, &inv.Currency, &items,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.DiscountAmount,
		&inv.DiscountType, &inv.Total, &inv.AmountPaid, &inv.BalanceDue,
		&inv.Notes, &inv.Terms, &inv.PaymentLink, &inv.RecurringInvoiceID,
		&inv.SentAt, &inv.ViewedAt, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return nil, fmt.Errorf("decode invoice items: %w", err)
	}
	return &inv, nil
}

func invoiceItemsJSON(inv *models.Invoice) ([]byte, error) {
	if inv.Items == nil {
		return []byte("[]"), nil
	}
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return nil, fmt.Errorf("encode invoice items: %w", err)
	}
	return items, nil
}

// CreateInvoice inserts a new invoice.
func (db *DB) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	items, err := invoiceItemsJSON(inv)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO invoices (
			id, user_id, client_id, invoice_number, invoice_date, due_date,
			status, currency, items, subtotal, tax_rate, tax_amount,
			discount_amount, discount_type, total, amount_paid, balance_due,
			notes, terms, payment_link, recurring_invoice_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23
		)
	`, inv.ID, inv.UserID, inv.ClientID, inv.InvoiceNumber, inv.InvoiceDate,
		inv.DueDate, inv.Status, inv.Currency, items, inv.Subtotal, inv.TaxRate,
		inv.TaxAmount, inv.DiscountAmount, inv.DiscountType, inv.Total,
		inv.AmountPaid, inv.BalanceDue, inv.Notes, inv.Terms, inv.PaymentLink,
		inv.RecurringInvoiceID, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// GetInvoiceByID returns an invoice owned by the user.
func (db *DB) GetInvoiceByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	return scanInvoice(db.Pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1 AND user_id = $2
	`, id, userID))
}

// GetInvoiceForPayment returns an invoice without user scoping. Webhook
// events identify invoices directly and carry no user context.
func (db *DB) GetInvoiceForPayment(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return scanInvoice(db.Pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1
	`, id))
}

// InvoiceFilter narrows ListInvoices results.
type InvoiceFilter struct {
	Search   string
	Status   models.InvoiceStatus
	ClientID *uuid.UUID
}

// ListInvoices returns the user's invoices with client identity, newest first.
func (db *DB) ListInvoices(ctx context.Context, userID uuid.UUID, filter InvoiceFilter) ([]*models.InvoiceWithClient, error) {
	query := `
		SELECT ` + prefixColumns("i", invoiceColumns) + `, c.name, c.email
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.user_id = $1`
	args := []any{userID}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(` AND (i.invoice_number ILIKE $%d OR c.name ILIKE $%d)`,
			len(args), len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND i.status = $%d`, len(args))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		query += fmt.Sprintf(` AND i.client_id = $%d`, len(args))
	}
	query += ` ORDER BY i.invoice_date DESC, i.created_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.InvoiceWithClient
	for rows.Next() {
		var iwc models.InvoiceWithClient
		var items []byte
		err := rows.Scan(
			&iwc.ID, &iwc.UserID, &iwc.ClientID, &iwc.InvoiceNumber,
			&iwc.InvoiceDate, &iwc.DueDate, &iwc.Status, &iwc.Currency, &items,
			&iwc.Subtotal, &iwc.TaxRate, &iwc.TaxAmount, &iwc.DiscountAmount,
			&iwc.DiscountType, &iwc.Total, &iwc.AmountPaid, &iwc.BalanceDue,
			&iwc.Notes, &iwc.Terms, &iwc.PaymentLink, &iwc.RecurringInvoiceID,
			&iwc.SentAt, &iwc.ViewedAt, &iwc.PaidAt, &iwc.CreatedAt, &iwc.UpdatedAt,
			&iwc.ClientName, &iwc.ClientEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan invoice row: %w", err)
		}
		if err := json.Unmarshal(items, &iwc.Items); err != nil {
			return nil, fmt.Errorf("decode invoice items: %w", err)
		}
		invoices = append(invoices, &iwc)
	}
	return invoices, rows.Err()
}

// ListInvoicesForClient returns a client's non-draft invoices for the portal.
func (db *DB) ListInvoicesForClient(ctx context.Context, clientID uuid.UUID) ([]*models.Invoice, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE client_id = $1 AND status <> 'draft'
		ORDER BY invoice_date DESC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// UpdateInvoice persists all mutable invoice fields.
func (db *DB) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	items, err := invoiceItemsJSON(inv)
	if err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE invoices SET
			invoice_date = $3, due_date = $4, status = $5, currency = $6,
			items = $7, subtotal = $8, tax_rate = $9, tax_amount = $10,
			discount_amount = $11, discount_type = $12, total = $13,
			amount_paid = $14, balance_due = $15, notes = $16, terms = $17,
			payment_link = $18, sent_at = $19, viewed_at = $20, paid_at = $21,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, inv.ID, inv.UserID, inv.InvoiceDate, inv.DueDate, inv.Status,
		inv.Currency, items, inv.Subtotal, inv.TaxRate, inv.TaxAmount,
		inv.DiscountAmount, inv.DiscountType, inv.Total, inv.AmountPaid,
		inv.BalanceDue, inv.Notes, inv.Terms, inv.PaymentLink, inv.SentAt,
		inv.ViewedAt, inv.PaidAt)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InvoiceNumberExists reports whether an invoice number is already taken.
func (db *DB) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_number = $1)", number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check invoice number: %w", err)
	}
	return exists, nil
}

// InvoiceHasPayments reports whether any payment row references the invoice.
func (db *DB) InvoiceHasPayments(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM payments WHERE invoice_id = $1)", id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check invoice payments: %w", err)
	}
	return exists, nil
}

// DeleteInvoice hard-deletes an invoice. Callers must first verify no
// payments reference it.
func (db *DB) DeleteInvoice(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		"DELETE FROM invoices WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkInvoiceSent records a successful send. Draft invoices move to sent;
// re-sending never regresses a later status.
func (db *DB) MarkInvoiceSent(ctx context.Context, userID, id uuid.UUID, sentAt time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE invoices SET
			status = CASE WHEN status = 'draft' THEN 'sent' ELSE status END,
			sent_at = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, sentAt)
	if err != nil {
		return fmt.Errorf("mark invoice sent: %w", err)
	}
	return nil
}

// MarkInvoiceViewed records the first portal open. Only sent invoices
// transition; the update is idempotent and never regresses paid ones.
func (db *DB) MarkInvoiceViewed(ctx context.Context, id uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE invoices SET status = 'viewed', viewed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'sent'
	`, id)
	if err != nil {
		return fmt.Errorf("mark invoice viewed: %w", err)
	}
	return nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	out := ""
	for i, col := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + col
	}
	return out
}

func splitColumns(columns string) []string {
	var out []string
	cur := ""
	for _, r := range columns {
		switch r {
		case ',':
			out = append(out, cur)
			cur = ""
		case ' ', '\n', '\t':
			// skip whitespace
		default:
			cur += string(r)
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
