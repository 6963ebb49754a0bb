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

const expenseColumns = `
	id, user_id, description, amount, category, expense_date, client_id,
	invoice_id, billable, reimbursable, tax_deductible, vendor,
	payment_method, currency, receipt_url, notes, created_at, updated_at`

func scanExpense(row pgx.Row) (*models.Expense, error) {
	var e models.Expense
	err := row.Scan(
		&e.ID, &e.UserID, &e.Description, &e.Amount, &e.Category, &e.Date,
		&e.ClientID, &e.InvoiceID, &e.Billable, &e.Reimbursable,
		&e.TaxDeductible, &e.Vendor, &e.PaymentMethod, &e.Currency,
		&e.ReceiptURL, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	return &e, nil
}

// CreateExpense inserts a new expense.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO expenses (
			id, user_id, description, amount, category, expense_date,
			client_id, invoice_id, billable, reimbursable, tax_deductible,
			vendor, payment_method, currency, receipt_url, notes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18
		)
	`, e.ID, e.UserID, e.Description, e.Amount, e.Category, e.Date, e.ClientID,
		e.InvoiceID, e.Billable, e.Reimbursable, e.TaxDeductible, e.Vendor,
		e.PaymentMethod, e.Currency, e.ReceiptURL, e.Notes, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// GetExpense returns an expense owned by the user.
func (db *DB) GetExpense(ctx context.Context, userID, id uuid.UUID) (*models.Expense, error) {
	return scanExpense(db.Pool.QueryRow(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE id = $1 AND user_id = $2
	`, id, userID))
}

// ExpenseFilter narrows ListExpenses results.
type ExpenseFilter struct {
	Category models.ExpenseCategory
	ClientID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// ListExpenses returns the user's expenses, newest first.
func (db *DB) ListExpenses(ctx context.Context, userID uuid.UUID, filter ExpenseFilter) ([]*models.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE user_id = $1`
	args := []any{userID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		query += fmt.Sprintf(` AND client_id = $%d`, len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(` AND expense_date >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(` AND expense_date <= $%d`, len(args))
	}
	query += ` ORDER BY expense_date DESC, created_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// UpdateExpense persists all mutable expense fields.
func (db *DB) UpdateExpense(ctx context.Context, e *models.Expense) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE expenses SET
			description = $3, amount = $4, category = $5, expense_date = $6,
			client_id = $7, invoice_id = $8, billable = $9, reimbursable = $10,
			tax_deductible = $11, vendor = $12, payment_method = $13,
			currency = $14, receipt_url = $15, notes = $16, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, e.ID, e.UserID, e.Description, e.Amount, e.Category, e.Date, e.ClientID,
		e.InvoiceID, e.Billable, e.Reimbursable, e.TaxDeductible, e.Vendor,
		e.PaymentMethod, e.Currency, e.ReceiptURL, e.Notes)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpense deletes an expense.
func (db *DB) DeleteExpense(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		"DELETE FROM expenses WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetExpenseSummary aggregates the user's expenses in a period with a
// per-category rollup.
func (db *DB) GetExpenseSummary(ctx context.Context, userID uuid.UUID, from, to time.Time) (*models.ExpenseSummary, error) {
	summary := &models.ExpenseSummary{From: from, To: to}

	err := db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM expenses
		WHERE user_id = $1 AND expense_date BETWEEN $2 AND $3
	`, userID, from, to).Scan(&summary.Total, &summary.Count)
	if err != nil {
		return nil, fmt.Errorf("expense summary totals: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT category, COALESCE(SUM(amount), 0), COUNT(*)
		FROM expenses
		WHERE user_id = $1 AND expense_date BETWEEN $2 AND $3
		GROUP BY category
		ORDER BY SUM(amount) DESC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("expense summary categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		summary.Categories = append(summary.Categories, ct)
	}
	return summary, rows.Err()
}
