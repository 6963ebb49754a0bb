package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craudioviz/invoicer/internal/models"
)

func insertActivity(ctx context.Context, tx pgx.Tx, ev *models.ActivityEvent) error {
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("encode activity details: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO activity_log (id, invoice_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.ID, ev.InvoiceID, ev.Action, details, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// AppendActivity records one audit-log entry.
func (db *DB) AppendActivity(ctx context.Context, ev *models.ActivityEvent) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		return insertActivity(ctx, tx, ev)
	})
}

// ListActivityForInvoice returns an invoice's audit log, newest first. The
// user scope guards against reading another user's invoice history.
func (db *DB) ListActivityForInvoice(ctx context.Context, userID, invoiceID uuid.UUID) ([]*models.ActivityEvent, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT a.id, a.invoice_id, a.action, a.details, a.created_at
		FROM activity_log a
		JOIN invoices i ON i.id = a.invoice_id
		WHERE a.invoice_id = $1 AND i.user_id = $2
		ORDER BY a.created_at DESC
	`, invoiceID, userID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var events []*models.ActivityEvent
	for rows.Next() {
		var ev models.ActivityEvent
		var details []byte
		if err := rows.Scan(&ev.ID, &ev.InvoiceID, &ev.Action, &details, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				return nil, fmt.Errorf("decode activity details: %w", err)
			}
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
