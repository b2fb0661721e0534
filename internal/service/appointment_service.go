package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/atelier-backend/internal/goroutine"
	"github.com/ignatzorin/atelier-backend/internal/logger"
	"github.com/ignatzorin/atelier-backend/internal/models"
	"github.com/ignatzorin/atelier-backend/internal/pkg/apperror"
	"github.com/ignatzorin/atelier-backend/internal/repository"
	"github.com/ignatzorin/atelier-backend/internal/validation"
)

// Максимальный размер страницы при выборке заявок.
const maxAppointmentsPage = 100

// AppointmentRepo описывает зависимости AppointmentService от слоя хранилища.
type AppointmentRepo interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
	FindAll(ctx context.Context, filter repository.AppointmentFilter) ([]models.Appointment, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Appointment, error)
	Update(ctx context.Context, id int64, upd repository.AppointmentUpdate) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status models.AppointmentStatus) (*models.Appointment, error)
	Delete(ctx context.Context, id int64) (*models.Appointment, error)
	MarkReminded(ctx context.Context, id int64) error
	CountAll(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.AppointmentStatus) (int, error)
}

// AppointmentService инкапсулирует бизнес-логику работы с заявками:
// создание, переходы по статусам, выборки и статистику.
type AppointmentService struct {
	repo    AppointmentRepo
	gateway NotificationGateway
}

// CreateAppointmentInput содержит данные новой заявки.
type CreateAppointmentInput struct {
	AppointmentTime time.Time
	Name            string
	Phone           string
	Email           string
	Notes           *string
}

// ListAppointmentsInput описывает фильтр выборки. Все заданные условия
// объединяются по AND.
type ListAppointmentsInput struct {
	Status    *models.AppointmentStatus
	StartDate *time.Time
	EndDate   *time.Time
	Skip      int
	Take      int
}

// TransitionResult возвращает итог смены статуса. Warning заполняется,
// если уведомление клиенту отправить не удалось: сам переход при этом
// считается успешным.
type TransitionResult struct {
	Appointment *models.Appointment
	Warning     string
}

// NewAppointmentService создаёт сервис заявок.
func NewAppointmentService(repo AppointmentRepo, gateway NotificationGateway) *AppointmentService {
	return &AppointmentService{repo: repo, gateway: gateway}
}

// Create сохраняет новую заявку. Статус всегда выставляется в "не обработана",
// что бы ни прислал клиент. Письмо с подтверждением брони уходит в фоне
// и на результат не влияет.
func (s *AppointmentService) Create(ctx context.Context, in CreateAppointmentInput) (*models.Appointment, error) {
	if in.AppointmentTime.IsZero() {
		return nil, apperror.New(apperror.ErrCodeValidation, "время визита обязательно")
	}
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePhone(in.Phone); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNotes(in.Notes); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	appointment := &models.Appointment{
		AppointmentTime: in.AppointmentTime,
		Name:            strings.TrimSpace(in.Name),
		Phone:           strings.TrimSpace(in.Phone),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Notes:           in.Notes,
		Status:          models.StatusPending,
	}

	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить заявку")
	}

	if s.gateway != nil {
		snapshot := *appointment
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		goroutine.SafeGoWithContext(sendCtx, func(ctx context.Context) {
			defer cancel()
			if err := s.gateway.Send(ctx, confirmationNotification(&snapshot)); err != nil {
				logNotificationFailure(snapshot.Email, NotificationAppointmentConfirmation, err)
			}
		})
	}

	return appointment, nil
}

// Get возвращает заявку по идентификатору.
func (s *AppointmentService) Get(ctx context.Context, id int64) (*models.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapAppointmentError(err)
	}
	return appointment, nil
}

// List возвращает заявки по фильтру в хронологическом порядке.
func (s *AppointmentService) List(ctx context.Context, in ListAppointmentsInput) ([]models.Appointment, error) {
	if in.Status != nil && !in.Status.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "статус должен быть числом от 0 до 3")
	}
	if in.StartDate != nil && in.EndDate != nil && in.StartDate.After(*in.EndDate) {
		return nil, apperror.New(apperror.ErrCodeValidation, "начальная дата не может быть позже конечной")
	}

	take := in.Take
	if take <= 0 {
		take = 50
	}
	if take > maxAppointmentsPage {
		take = maxAppointmentsPage
	}
	skip := in.Skip
	if skip < 0 {
		skip = 0
	}

	appointments, err := s.repo.FindAll(ctx, repository.AppointmentFilter{
		Status:    in.Status,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Skip:      skip,
		Take:      take,
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список заявок")
	}
	return appointments, nil
}

// Transition переводит заявку в целевой статус. Допустим любой переход между
// четырьмя статусами: решение принимает администратор, строгого графа нет.
// Уведомление клиенту отправляется после записи статуса; ошибка доставки
// не откатывает переход и возвращается только как предупреждение.
func (s *AppointmentService) Transition(ctx context.Context, id int64, target models.AppointmentStatus) (*TransitionResult, error) {
	if !target.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "статус должен быть числом от 0 до 3")
	}

	appointment, err := s.repo.UpdateStatus(ctx, id, target)
	if err != nil {
		return nil, mapAppointmentError(err)
	}

	result := &TransitionResult{Appointment: appointment}
	if s.gateway != nil {
		if err := s.gateway.Send(ctx, statusChangeNotification(appointment)); err != nil {
			logNotificationFailure(appointment.Email, NotificationAppointmentStatusChange, err)
			result.Warning = "статус обновлён, но уведомление клиенту отправить не удалось"
		}
	}
	return result, nil
}

// Update применяет частичное обновление полей заявки, включая статус.
func (s *AppointmentService) Update(ctx context.Context, id int64, upd repository.AppointmentUpdate) (*TransitionResult, error) {
	if upd.Status != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "для смены статуса используйте отдельную операцию")
	}
	if upd.Email != nil {
		if err := validation.ValidateEmail(*upd.Email); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if upd.Phone != nil {
		if err := validation.ValidatePhone(*upd.Phone); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	appointment, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, mapAppointmentError(err)
	}
	return &TransitionResult{Appointment: appointment}, nil
}

// Delete удаляет заявку без возможности восстановления.
func (s *AppointmentService) Delete(ctx context.Context, id int64) (*models.Appointment, error) {
	appointment, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, mapAppointmentError(err)
	}
	return appointment, nil
}

// Stats считает заявки по статусам. Кэша нет, значения всегда свежие.
func (s *AppointmentService) Stats(ctx context.Context) (*models.AppointmentStats, error) {
	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить статистику")
	}

	stats := &models.AppointmentStats{Total: total}
	counts := []struct {
		status models.AppointmentStatus
		dest   *int
	}{
		{models.StatusPending, &stats.Pending},
		{models.StatusRejected, &stats.Rejected},
		{models.StatusPendingCommunication, &stats.PendingCommunication},
		{models.StatusApproved, &stats.Approved},
	}
	for _, c := range counts {
		n, err := s.repo.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить статистику")
		}
		*c.dest = n
	}

	stats.Processed = stats.Approved
	return stats, nil
}

// RemindUpcoming рассылает напоминания по подтверждённым заявкам, визит
// которых попадает в окно [сейчас, сейчас+within]. Заявка получает не более
// одного напоминания: после отправки проставляется отметка, и следующие
// запуски такую заявку пропускают. Ошибка доставки одного письма не
// прерывает рассылку. Возвращает количество отправленных писем.
func (s *AppointmentService) RemindUpcoming(ctx context.Context, within time.Duration) (int, error) {
	now := time.Now()
	appointments, err := s.repo.FindByDateRange(ctx, now, now.Add(within))
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявки для напоминаний")
	}

	sent := 0
	for i := range appointments {
		a := &appointments[i]
		if a.Status != models.StatusApproved {
			continue
		}
		if a.ReminderSentAt != nil {
			continue
		}
		if s.gateway == nil {
			continue
		}
		if err := s.gateway.Send(ctx, reminderNotification(a)); err != nil {
			logNotificationFailure(a.Email, NotificationAppointmentReminder, err)
			continue
		}
		sent++
		// Письмо уже ушло, поэтому ошибка записи отметки не отменяет
		// отправку: при следующем запуске возможен дубль. Логируем и идём дальше.
		if err := s.repo.MarkReminded(ctx, a.ID); err != nil && logger.Log != nil {
			logger.Log.WithField("appointment_id", a.ID).
				WithError(err).Warn("не удалось отметить отправку напоминания")
		}
	}
	return sent, nil
}

func confirmationNotification(a *models.Appointment) Notification {
	return Notification{
		To:   a.Email,
		Kind: NotificationAppointmentConfirmation,
		Payload: NotificationPayload{
			Name:            a.Name,
			AppointmentTime: a.AppointmentTime,
			Notes:           notesOrEmpty(a.Notes),
		},
	}
}

func statusChangeNotification(a *models.Appointment) Notification {
	return Notification{
		To:   a.Email,
		Kind: NotificationAppointmentStatusChange,
		Payload: NotificationPayload{
			Name:            a.Name,
			AppointmentTime: a.AppointmentTime,
			StatusName:      a.Status.Name(),
		},
	}
}

func reminderNotification(a *models.Appointment) Notification {
	return Notification{
		To:   a.Email,
		Kind: NotificationAppointmentReminder,
		Payload: NotificationPayload{
			Name:            a.Name,
			AppointmentTime: a.AppointmentTime,
			Notes:           notesOrEmpty(a.Notes),
		},
	}
}

func notesOrEmpty(notes *string) string {
	if notes == nil {
		return ""
	}
	return *notes
}

func mapAppointmentError(err error) error {
	if errors.Is(err, repository.ErrAppointmentNotFound) {
		return apperror.ErrAppointmentNotFound
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при работе с заявками")
}

func logNotificationFailure(to string, kind NotificationKind, err error) {
	if logger.Log == nil {
		return
	}
	logger.Log.WithFields(logrus.Fields{
		"to":   to,
		"kind": kind,
	}).WithError(err).Warn("не удалось отправить уведомление")
}
