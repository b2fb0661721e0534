package models

import "time"

// Типы кодов подтверждения. Тип — произвольная метка назначения кода,
// коды разных типов друг другу не мешают.
const (
	VerificationTypeRegistration  = "registration"
	VerificationTypeLogin         = "login"
	VerificationTypePasswordReset = "password-reset"
)

// VerificationCode — одноразовый код подтверждения, отправляемый на email.
type VerificationCode struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"code" json:"-"`
	Type      string    `db:"type" json:"type"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	IsUsed    bool      `db:"is_used" json:"is_used"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsExpired сообщает, истёк ли срок действия кода на момент now.
func (v *VerificationCode) IsExpired(now time.Time) bool {
	return !v.ExpiresAt.After(now)
}
