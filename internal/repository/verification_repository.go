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

var ErrVerificationCodeNotFound = errors.New("verification code not found")

// VerificationRepository отвечает за хранение кодов подтверждения.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository создаёт новый экземпляр.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// CreateCode сохраняет новый код подтверждения.
func (r *VerificationRepository) CreateCode(ctx context.Context, email, code, codeType string, expiresAt time.Time) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	err := r.db.GetContext(ctx, &vc, `
		INSERT INTO verification_codes (email, code, type, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, code, type, expires_at, is_used, created_at
	`, email, code, codeType, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("verification repository: create %w", err)
	}
	return &vc, nil
}

// FindLatestValid возвращает самый свежий неиспользованный и непросроченный код,
// совпадающий по email, значению и типу.
func (r *VerificationRepository) FindLatestValid(ctx context.Context, email, code, codeType string) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	err := r.db.GetContext(ctx, &vc, `
		SELECT id, email, code, type, expires_at, is_used, created_at
		FROM verification_codes
		WHERE email = $1 AND code = $2 AND type = $3 AND is_used = false AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`, email, code, codeType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVerificationCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification repository: find latest valid %w", err)
	}
	return &vc, nil
}

// FindMostRecent возвращает последний созданный код для пары (email, type)
// независимо от его состояния. Нужен для проверки кулдауна отправки.
func (r *VerificationRepository) FindMostRecent(ctx context.Context, email, codeType string) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	err := r.db.GetContext(ctx, &vc, `
		SELECT id, email, code, type, expires_at, is_used, created_at
		FROM verification_codes
		WHERE email = $1 AND type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, email, codeType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVerificationCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification repository: find most recent %w", err)
	}
	return &vc, nil
}

// InvalidateAllUnused помечает использованными все неиспользованные коды пары
// (email, type). Записи не удаляются, чтобы сохранить историю отправок.
func (r *VerificationRepository) InvalidateAllUnused(ctx context.Context, email, codeType string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE verification_codes SET is_used = true
		WHERE email = $1 AND type = $2 AND is_used = false
	`, email, codeType)
	if err != nil {
		return fmt.Errorf("verification repository: invalidate unused %w", err)
	}
	return nil
}

// MarkUsed помечает конкретный код использованным.
func (r *VerificationRepository) MarkUsed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE verification_codes SET is_used = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("verification repository: mark used %w", err)
	}
	return nil
}

// DeleteExpired удаляет все коды с истёкшим сроком действия независимо от
// того, были ли они использованы. Возвращает количество удалённых записей.
func (r *VerificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("verification repository: delete expired %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("verification repository: rows affected %w", err)
	}
	return removed, nil
}
