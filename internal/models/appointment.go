package models

import "time"

// AppointmentStatus кодирует статус обработки заявки на примерку.
// Числовые значения зафиксированы: они хранятся в базе и отдаются в API,
// менять их нельзя.
type AppointmentStatus int

const (
	StatusPending              AppointmentStatus = 0 // не обработана
	StatusRejected             AppointmentStatus = 1 // отклонена
	StatusPendingCommunication AppointmentStatus = 2 // нужно связаться с клиентом
	StatusApproved             AppointmentStatus = 3 // подтверждена
)

// statusNames сопоставляет статусу человекочитаемое название.
var statusNames = map[AppointmentStatus]string{
	StatusPending:              "не обработана",
	StatusRejected:             "отклонена",
	StatusPendingCommunication: "ожидает связи",
	StatusApproved:             "подтверждена",
}

// IsValid проверяет, что значение входит в набор допустимых статусов.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusRejected, StatusPendingCommunication, StatusApproved:
		return true
	}
	return false
}

// Name возвращает человекочитаемое название статуса.
func (s AppointmentStatus) Name() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "неизвестный статус"
}

// StatusOption описывает вариант статуса для выпадающих списков админки.
type StatusOption struct {
	Value AppointmentStatus `json:"value"`
	Name  string            `json:"name"`
}

// StatusOptions возвращает все варианты статуса в порядке возрастания значения.
func StatusOptions() []StatusOption {
	return []StatusOption{
		{Value: StatusPending, Name: statusNames[StatusPending]},
		{Value: StatusRejected, Name: statusNames[StatusRejected]},
		{Value: StatusPendingCommunication, Name: statusNames[StatusPendingCommunication]},
		{Value: StatusApproved, Name: statusNames[StatusApproved]},
	}
}

// Appointment представляет заявку клиента на визит в ателье.
type Appointment struct {
	ID              int64             `db:"id" json:"id"`
	AppointmentTime time.Time         `db:"appointment_time" json:"appointment_time"`
	Name            string            `db:"name" json:"name"`
	Phone           string            `db:"phone" json:"phone"`
	Email           string            `db:"email" json:"email"`
	Notes           *string           `db:"notes" json:"notes,omitempty"`
	Status          AppointmentStatus `db:"status" json:"status"`
	// ReminderSentAt заполняется после отправки письма-напоминания,
	// чтобы повторные запуски рассылки не дублировали письма.
	ReminderSentAt *time.Time `db:"reminder_sent_at" json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsProcessed возвращает legacy-представление статуса одним флагом.
// Раньше статус хранился как boolean is_processed; поле больше не хранится,
// но старые потребители API продолжают его получать как производное значение.
func (a *Appointment) IsProcessed() bool {
	return a.Status != StatusPending
}

// AppointmentStats содержит счётчики заявок по статусам.
type AppointmentStats struct {
	Total                int `json:"total"`
	Pending              int `json:"pending"`
	Rejected             int `json:"rejected"`
	PendingCommunication int `json:"pendingCommunication"`
	Approved             int `json:"approved"`
	// Processed дублирует Approved для совместимости со старой админкой.
	Processed int `json:"processed"`
}
