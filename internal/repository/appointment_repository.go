package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/atelier-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// AppointmentFilter описывает условия выборки заявок.
// Все заданные условия объединяются по AND.
type AppointmentFilter struct {
	Status    *models.AppointmentStatus
	StartDate *time.Time // включительно, по appointment_time
	EndDate   *time.Time // включительно, по appointment_time
	Skip      int
	Take      int
}

// AppointmentUpdate описывает частичное обновление заявки.
// nil-поля не трогаются.
type AppointmentUpdate struct {
	AppointmentTime *time.Time
	Name            *string
	Phone           *string
	Email           *string
	Notes           *string
	Status          *models.AppointmentStatus
}

// AppointmentRepository отвечает за работу с заявками на примерку.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository создаёт новый экземпляр.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create сохраняет новую заявку и возвращает её с заполненными id и метками времени.
func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	query := `
		INSERT INTO appointments (appointment_time, name, phone, email, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		a.AppointmentTime, a.Name, a.Phone, a.Email, a.Notes, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("appointment repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	var a models.Appointment
	query := `
		SELECT id, appointment_time, name, phone, email, notes, status, reminder_sent_at, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointment repository: get by id %w", err)
	}
	return &a, nil
}

// FindAll возвращает заявки по фильтру, всегда в хронологическом порядке
// по appointment_time. Админка полагается на этот порядок.
func (r *AppointmentRepository) FindAll(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	var (
		conditions []string
		args       []interface{}
	)

	addArg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != nil {
		conditions = append(conditions, "status = "+addArg(*filter.Status))
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "appointment_time >= "+addArg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "appointment_time <= "+addArg(*filter.EndDate))
	}

	query := `
		SELECT id, appointment_time, name, phone, email, notes, status, reminder_sent_at, created_at, updated_at
		FROM appointments
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY appointment_time ASC"

	if filter.Take > 0 {
		query += " LIMIT " + addArg(filter.Take)
	}
	if filter.Skip > 0 {
		query += " OFFSET " + addArg(filter.Skip)
	}

	appointments := []models.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("appointment repository: find all %w", err)
	}
	return appointments, nil
}

// FindByDateRange возвращает все заявки в интервале [start, end] по appointment_time.
// Используется задачей рассылки напоминаний.
func (r *AppointmentRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Appointment, error) {
	return r.FindAll(ctx, AppointmentFilter{StartDate: &start, EndDate: &end})
}

// Update применяет частичное обновление и возвращает обновлённую запись.
func (r *AppointmentRepository) Update(ctx context.Context, id int64, upd AppointmentUpdate) (*models.Appointment, error) {
	var (
		sets []string
		args []interface{}
	)

	addSet := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.AppointmentTime != nil {
		addSet("appointment_time", *upd.AppointmentTime)
	}
	if upd.Name != nil {
		addSet("name", *upd.Name)
	}
	if upd.Phone != nil {
		addSet("phone", *upd.Phone)
	}
	if upd.Email != nil {
		addSet("email", *upd.Email)
	}
	if upd.Notes != nil {
		addSet("notes", *upd.Notes)
	}
	if upd.Status != nil {
		addSet("status", *upd.Status)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE appointments SET %s
		WHERE id = $%d
		RETURNING id, appointment_time, name, phone, email, notes, status, reminder_sent_at, created_at, updated_at
	`, strings.Join(sets, ", "), len(args))

	var a models.Appointment
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointment repository: update %w", err)
	}
	return &a, nil
}

// UpdateStatus меняет только статус заявки.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id int64, status models.AppointmentStatus) (*models.Appointment, error) {
	return r.Update(ctx, id, AppointmentUpdate{Status: &status})
}

// Delete удаляет заявку и возвращает удалённую запись.
func (r *AppointmentRepository) Delete(ctx context.Context, id int64) (*models.Appointment, error) {
	var a models.Appointment
	query := `
		DELETE FROM appointments
		WHERE id = $1
		RETURNING id, appointment_time, name, phone, email, notes, status, reminder_sent_at, created_at, updated_at
	`
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointment repository: delete %w", err)
	}
	return &a, nil
}

// MarkReminded фиксирует отправку напоминания по заявке. Повторные
// запуски рассылки пропускают заявки с заполненным reminder_sent_at.
func (r *AppointmentRepository) MarkReminded(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET reminder_sent_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointment repository: mark reminded %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// CountAll возвращает общее количество заявок.
func (r *AppointmentRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM appointments`); err != nil {
		return 0, fmt.Errorf("appointment repository: count all %w", err)
	}
	return count, nil
}

// CountByStatus возвращает количество заявок в указанном статусе.
func (r *AppointmentRepository) CountByStatus(ctx context.Context, status models.AppointmentStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM appointments WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("appointment repository: count by status %w", err)
	}
	return count, nil
}
