// Package invoice holds invoice numbering and derived-status rules shared by
// the API handlers and the recurring scheduler.
package invoice

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Number builds an invoice number from the trailing eight digits of the
// millisecond timestamp, e.g. INV-58291042.
func Number(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return "INV-" + ms
}

// UniqueNumber generates a number and retries with a fresh timestamp when the
// exists check reports a collision. Collisions only occur when two invoices
// are created in the same millisecond.
func UniqueNumber(ctx context.Context, now func() time.Time, exists func(context.Context, string) (bool, error)) (string, error) {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		n := Number(now())
		taken, err := exists(ctx, n)
		if err != nil {
			return "", err
		}
		if !taken {
			return n, nil
		}
		time.Sleep(time.Millisecond)
	}
	return "", fmt.Errorf("could not allocate a unique invoice number after %d attempts", attempts)
}
