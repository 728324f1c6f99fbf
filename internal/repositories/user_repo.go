package repositories

import (
	"context"
	"fmt"

	"github.com/DrewHollis/gatehouse/internal/database"
	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/google/uuid"
)

// rowScanner abstracts pgx.Row and pgx.Rows for shared scan helpers
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, email, password_hash, name, role, status, single_device_login, created_at, updated_at`

// UserRepository handles database operations for user accounts
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUserRow(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.Role, &user.Status, &user.SingleDeviceLogin,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, email))
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

// Create inserts a new user account
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, name, role, status, single_device_login)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Role, user.Status, user.SingleDeviceLogin,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// SetSingleDeviceLogin toggles single-device enforcement for an account
func (r *UserRepository) SetSingleDeviceLogin(ctx context.Context, id uuid.UUID, enabled bool) error {
	query := `UPDATE users SET single_device_login = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, enabled)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
