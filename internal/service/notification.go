package service

import (
	"context"
	"time"
)

// NotificationKind различает шаблоны уведомлений.
type NotificationKind string

const (
	NotificationAppointmentConfirmation NotificationKind = "appointment_confirmation"
	NotificationAppointmentReminder     NotificationKind = "appointment_reminder"
	NotificationAppointmentStatusChange NotificationKind = "appointment_status_change"
	NotificationVerificationCode        NotificationKind = "verification_code"
)

// NotificationPayload — структурированные данные для подстановки в шаблон.
// Сервисы не рендерят тело письма, только передают поля.
type NotificationPayload struct {
	Name            string
	AppointmentTime time.Time
	Notes           string
	StatusName      string
	Code            string
	ExpiresInMin    int
}

// Notification — запрос на доставку одного уведомления.
type Notification struct {
	To      string
	Kind    NotificationKind
	Payload NotificationPayload
}

// NotificationGateway абстрагирует канал доставки (email, в перспективе SMS).
// Реализация живёт в internal/email.
type NotificationGateway interface {
	Send(ctx context.Context, n Notification) error
}
