package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craudioviz/invoicer/internal/models"
)

const recurringColumns = `
	id, user_id, template_invoice_id, client_id, frequency, start_date,
	end_date, next_run_date, last_run_date, auto_send, send_days_before_due,
	status, invoices_generated, total_amount_generated, notes, created_at,
	updated_at`

func scanRecurring(row pgx.Row) (*models.RecurringInvoice, error) {
	var r models.RecurringInvoice
	err := row.Scan(
		&r.ID, &r.UserID, &r.TemplateInvoiceID, &r.ClientID, &r.Frequency,
		&r.StartDate, &r.EndDate, &r.NextRunDate, &r.LastRunDate, &r.AutoSend,
		&r.SendDaysBeforeDue, &r.Status, &r.InvoicesGenerated,
		&r.TotalAmountGenerated, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan recurring invoice: %w", err)
	}
	return &r, nil
}

// CreateRecurringInvoice inserts a new schedule.
func (db *DB) CreateRecurringInvoice(ctx context.Context, r *models.RecurringInvoice) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO recurring_invoices (
			id, user_id, template_invoice_id, client_id, frequency, start_date,
			end_date, next_run_date, auto_send, send_days_before_due, status,
			invoices_generated, total_amount_generated, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`, r.ID, r.UserID, r.TemplateInvoiceID, r.ClientID, r.Frequency,
		r.StartDate, r.EndDate, r.NextRunDate, r.AutoSend, r.SendDaysBeforeDue,
		r.Status, r.InvoicesGenerated, r.TotalAmountGenerated, r.Notes,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create recurring invoice: %w", err)
	}
	return nil
}

// GetRecurringInvoice returns a schedule owned by the user.
func (db *DB) GetRecurringInvoice(ctx context.Context, userID, id uuid.UUID) (*models.RecurringInvoice, error) {
	return scanRecurring(db.Pool.QueryRow(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_invoices
		WHERE id = $1 AND user_id = $2
	`, id, userID))
}

// ListRecurringInvoices returns the user's schedules with client and template
// identity, soonest run first.
func (db *DB) ListRecurringInvoices(ctx context.Context, userID uuid.UUID) ([]*models.RecurringInvoiceWithRefs, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+prefixColumns("r", recurringColumns)+`,
			c.name, c.email, i.invoice_number, i.total
		FROM recurring_invoices r
		JOIN clients c ON c.id = r.client_id
		JOIN invoices i ON i.id = r.template_invoice_id
		WHERE r.user_id = $1
		ORDER BY r.next_run_date
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring invoices: %w", err)
	}
	defer rows.Close()

	var schedules []*models.RecurringInvoiceWithRefs
	for rows.Next() {
		var s models.RecurringInvoiceWithRefs
		err := rows.Scan(
			&s.ID, &s.UserID, &s.TemplateInvoiceID, &s.ClientID, &s.Frequency,
			&s.StartDate, &s.EndDate, &s.NextRunDate, &s.LastRunDate,
			&s.AutoSend, &s.SendDaysBeforeDue, &s.Status, &s.InvoicesGenerated,
			&s.TotalAmountGenerated, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
			&s.ClientName, &s.ClientEmail, &s.TemplateNumber, &s.TemplateTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recurring row: %w", err)
		}
		schedules = append(schedules, &s)
	}
	return schedules, rows.Err()
}

// UpdateRecurringInvoice persists mutable schedule fields.
func (db *DB) UpdateRecurringInvoice(ctx context.Context, r *models.RecurringInvoice) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE recurring_invoices SET
			frequency = $3, start_date = $4, end_date = $5, next_run_date = $6,
			auto_send = $7, send_days_before_due = $8, status = $9,
			notes = $10, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, r.ID, r.UserID, r.Frequency, r.StartDate, r.EndDate, r.NextRunDate,
		r.AutoSend, r.SendDaysBeforeDue, r.Status, r.Notes)
	if err != nil {
		return fmt.Errorf("update recurring invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRecurringStatus moves a schedule between active/paused/cancelled.
func (db *DB) SetRecurringStatus(ctx context.Context, userID, id uuid.UUID, status models.RecurringStatus) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE recurring_invoices SET status = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, status)
	if err != nil {
		return fmt.Errorf("set recurring status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DueRecurringInvoices returns active schedules due on or before the given
// day, across all users.
func (db *DB) DueRecurringInvoices(ctx context.Context, today time.Time) ([]*models.RecurringInvoice, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_invoices
		WHERE status = 'active' AND next_run_date <= $1
		ORDER BY next_run_date
	`, today)
	if err != nil {
		return nil, fmt.Errorf("list due recurring invoices: %w", err)
	}
	defer rows.Close()

	var due []*models.RecurringInvoice
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, r)
	}
	return due, rows.Err()
}

// CreateGeneratedInvoice inserts a generated invoice and advances its
// schedule in one transaction. The advance is conditional on next_run_date
// still matching expectedRun; when another trigger already advanced the
// schedule the transaction rolls back and false is returned.
func (db *DB) CreateGeneratedInvoice(ctx context.Context, inv *models.Invoice, scheduleID uuid.UUID, expectedRun, nextRun, ranAt time.Time) (bool, error) {
	advanced := false
	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE recurring_invoices SET
				next_run_date = $2, last_run_date = $3,
				invoices_generated = invoices_generated + 1,
				total_amount_generated = total_amount_generated + $4,
				updated_at = NOW()
			WHERE id = $1 AND status = 'active' AND next_run_date = $5
		`, scheduleID, nextRun, ranAt, inv.Total, expectedRun)
		if err != nil {
			return fmt.Errorf("advance schedule: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		advanced = true

		items, err := invoiceItemsJSON(inv)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO invoices (
				id, user_id, client_id, invoice_number, invoice_date, due_date,
				status, currency, items, subtotal, tax_rate, tax_amount,
				discount_amount, discount_type, total, amount_paid, balance_due,
				notes, terms, payment_link, recurring_invoice_id, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18, $19, $20, $21, $22, $23
			)
		`, inv.ID, inv.UserID, inv.ClientID, inv.InvoiceNumber, inv.InvoiceDate,
			inv.DueDate, inv.Status, inv.Currency, items, inv.Subtotal,
			inv.TaxRate, inv.TaxAmount, inv.DiscountAmount, inv.DiscountType,
			inv.Total, inv.AmountPaid, inv.BalanceDue, inv.Notes, inv.Terms,
			inv.PaymentLink, inv.RecurringInvoiceID, inv.CreatedAt, inv.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert generated invoice: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE clients SET last_invoice_at = NOW() WHERE id = $1
		`, inv.ClientID)
		if err != nil {
			return fmt.Errorf("touch client: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return advanced, nil
}

// CompleteRecurringInvoice marks a schedule completed once its end date has
// passed.
func (db *DB) CompleteRecurringInvoice(ctx context.Context, id uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE recurring_invoices SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return fmt.Errorf("complete recurring invoice: %w", err)
	}
	return nil
}
