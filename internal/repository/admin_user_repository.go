package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/atelier-backend/internal/models"
)

var ErrAdminUserNotFound = errors.New("admin user not found")

// AdminUserRepository отвечает за учётные записи администраторов.
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository создаёт новый экземпляр.
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetByUsername возвращает администратора по имени пользователя.
func (r *AdminUserRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var u models.AdminUser
	query := `
		SELECT id, username, password_hash, email, role, is_active,
		       login_attempts, locked_until, last_login_at, created_at, updated_at
		FROM admin_users
		WHERE username = $1
	`
	if err := r.db.GetContext(ctx, &u, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminUserNotFound
		}
		return nil, fmt.Errorf("admin user repository: get by username %w", err)
	}
	return &u, nil
}

// GetByID возвращает администратора по идентификатору.
func (r *AdminUserRepository) GetByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	var u models.AdminUser
	query := `
		SELECT id, username, password_hash, email, role, is_active,
		       login_attempts, locked_until, last_login_at, created_at, updated_at
		FROM admin_users
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminUserNotFound
		}
		return nil, fmt.Errorf("admin user repository: get by id %w", err)
	}
	return &u, nil
}

// RecordFailedLogin увеличивает счётчик неудачных входов и, если передан
// lockedUntil, блокирует учётную запись до этого момента.
func (r *AdminUserRepository) RecordFailedLogin(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_users
		SET login_attempts = $2, locked_until = $3, updated_at = NOW()
		WHERE id = $1
	`, id, attempts, lockedUntil)
	if err != nil {
		return fmt.Errorf("admin user repository: record failed login %w", err)
	}
	return nil
}

// RecordSuccessfulLogin сбрасывает счётчик неудач, снимает блокировку
// и отмечает время последнего входа.
func (r *AdminUserRepository) RecordSuccessfulLogin(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_users
		SET login_attempts = 0, locked_until = NULL, last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("admin user repository: record successful login %w", err)
	}
	return nil
}
