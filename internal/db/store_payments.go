package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craudioviz/invoicer/internal/models"
)

// ErrDuplicateTransaction is returned when a payment with the same external
// transaction id already exists in the ledger.
var ErrDuplicateTransaction = errors.New("transaction id already recorded")

// PaymentExists reports whether a transaction id is already in the ledger.
func (db *DB) PaymentExists(ctx context.Context, transactionID string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM payments WHERE transaction_id = $1)", transactionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check payment: %w", err)
	}
	return exists, nil
}

// IsDuplicatePayment reports whether an ApplyPayment error was caused by the
// transaction-id unique constraint.
func (db *DB) IsDuplicatePayment(err error) bool {
	return errors.Is(err, ErrDuplicateTransaction)
}

// ApplyPayment writes the payment row, the invoice update and the activity
// entry in one transaction. inv may be nil when the invoice is untouched
// (failed captures). The unique transaction_id constraint turns a concurrent
// duplicate delivery into ErrDuplicateTransaction.
func (db *DB) ApplyPayment(ctx context.Context, payment *models.Payment, inv *models.Invoice, activity *models.ActivityEvent) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO payments (
				id, invoice_id, amount, currency, method, status,
				transaction_id, error_message, paid_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, payment.ID, payment.InvoiceID, payment.Amount, payment.Currency,
			payment.Method, payment.Status, payment.TransactionID,
			payment.ErrorMessage, payment.PaidAt, payment.CreatedAt)
		if err != nil {
			if isUniqueViolation(err, "payments_transaction_id_unique") {
				return ErrDuplicateTransaction
			}
			return fmt.Errorf("insert payment: %w", err)
		}

		if inv != nil {
			_, err = tx.Exec(ctx, `
				UPDATE invoices SET
					status = $2, amount_paid = $3, balance_due = $4,
					paid_at = $5, updated_at = NOW()
				WHERE id = $1
			`, inv.ID, inv.Status, inv.AmountPaid, inv.BalanceDue, inv.PaidAt)
			if err != nil {
				return fmt.Errorf("update invoice payment state: %w", err)
			}
		}

		if activity != nil {
			if err := insertActivity(ctx, tx, activity); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListPaymentsForInvoice returns the ledger entries for one invoice, oldest
// first.
func (db *DB) ListPaymentsForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, invoice_id, amount, currency, method, status,
			transaction_id, error_message, paid_at, created_at
		FROM payments
		WHERE invoice_id = $1
		ORDER BY created_at
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		var p models.Payment
		err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Currency,
			&p.Method, &p.Status, &p.TransactionID, &p.ErrorMessage,
			&p.PaidAt, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
