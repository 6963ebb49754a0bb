package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craudioviz/invoicer/internal/models"
)

// CreateUser inserts a new user.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, name, api_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Email, user.Name, user.APITokenHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("user with email %s already exists", user.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID returns a user by their ID.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return db.scanUser(db.Pool.QueryRow(ctx, `
		SELECT id, email, name, api_token_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id))
}

// GetUserByTokenHash returns the user owning the given API token hash.
func (db *DB) GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	return db.scanUser(db.Pool.QueryRow(ctx, `
		SELECT id, email, name, api_token_hash, created_at, updated_at
		FROM users
		WHERE api_token_hash = $1
	`, tokenHash))
}

func (db *DB) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.APITokenHash,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
