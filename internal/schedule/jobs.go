package schedule

import (
	"context"
	"time"

	"github.com/ignatzorin/atelier-backend/internal/logger"
)

// CodeCleaner удаляет просроченные коды подтверждения.
type CodeCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// ReminderSender рассылает напоминания о предстоящих визитах.
type ReminderSender interface {
	RemindUpcoming(ctx context.Context, within time.Duration) (int, error)
}

// CleanupCodesJob периодически чистит таблицу кодов подтверждения.
type CleanupCodesJob struct {
	verifications CodeCleaner
}

// NewCleanupCodesJob создаёт задачу чистки кодов.
func NewCleanupCodesJob(verifications CodeCleaner) *CleanupCodesJob {
	return &CleanupCodesJob{verifications: verifications}
}

func (j *CleanupCodesJob) Name() string { return "cleanup_verification_codes" }

func (j *CleanupCodesJob) Run(ctx context.Context) error {
	removed, err := j.verifications.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if logger.Log != nil && removed > 0 {
		logger.Log.WithField("removed", removed).Info("просроченные коды удалены")
	}
	return nil
}

// RemindersJob рассылает напоминания о визитах в ближайшем окне.
type RemindersJob struct {
	appointments ReminderSender
	window       time.Duration
}

// NewRemindersJob создаёт задачу напоминаний. Нулевое окно заменяется сутками.
func NewRemindersJob(appointments ReminderSender, window time.Duration) *RemindersJob {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &RemindersJob{appointments: appointments, window: window}
}

func (j *RemindersJob) Name() string { return "appointment_reminders" }

func (j *RemindersJob) Run(ctx context.Context) error {
	sent, err := j.appointments.RemindUpcoming(ctx, j.window)
	if err != nil {
		return err
	}
	if logger.Log != nil && sent > 0 {
		logger.Log.WithField("sent", sent).Info("напоминания отправлены")
	}
	return nil
}
