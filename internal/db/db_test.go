package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMigrations(t *testing.T) {
	migrations, err := GetMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE users")
	assert.Contains(t, migrations[0].SQL, "payments_transaction_id_unique")

	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].Version, migrations[i-1].Version)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "payments_transaction_id_unique"}

	assert.True(t, isUniqueViolation(pgErr, ""))
	assert.True(t, isUniqueViolation(pgErr, "payments_transaction_id_unique"))
	assert.False(t, isUniqueViolation(pgErr, "clients_user_email_unique"))
	assert.False(t, isUniqueViolation(errors.New("connection reset"), ""))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
}

func TestPrefixColumns(t *testing.T) {
	got := prefixColumns("i", "id, user_id,\n\ttotal")
	assert.Equal(t, "i.id, i.user_id, i.total", got)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("postgres://localhost/invoicer")
	assert.Equal(t, int32(25), cfg.MaxConns)
	assert.Equal(t, int32(5), cfg.MinConns)
}
