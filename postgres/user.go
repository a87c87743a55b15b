package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mastermindankur/warrantywallet/models"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a PostgreSQL implementation of
// models.UserRepository. It serves as the user directory for the reminder
// job: email may legitimately be absent.
func NewUserRepository(db *sql.DB) models.UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a user by ID. A user without a stored email is returned
// with an empty Email, not an error.
func (repo *userRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const q = `SELECT id, COALESCE(email, ''), created_at, updated_at FROM users WHERE id = $1`

	row := repo.db.QueryRowContext(ctx, q, id)

	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}

		return models.User{}, err
	}

	return user, nil
}

// Create inserts a new user.
func (repo *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `INSERT INTO users (id, email, created_at, updated_at) VALUES ($1, $2, $3, $4)`

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := repo.db.ExecContext(ctx, q, user.ID, nullable(user.Email), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// Delete removes a user.
func (repo *userRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM users WHERE id = $1`

	result, err := repo.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}

	return nil
}
