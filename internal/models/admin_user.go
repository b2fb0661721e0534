package models

import "time"

// AdminUser — учётная запись администратора ателье.
type AdminUser struct {
	ID            int64      `db:"id" json:"id"`
	Username      string     `db:"username" json:"username"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Email         string     `db:"email" json:"email"`
	Role          string     `db:"role" json:"role"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	LoginAttempts int        `db:"login_attempts" json:"-"`
	LockedUntil   *time.Time `db:"locked_until" json:"-"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsLocked сообщает, заблокирована ли учётная запись на момент now.
func (u *AdminUser) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
