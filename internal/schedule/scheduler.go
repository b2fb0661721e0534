package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/atelier-backend/internal/logger"
)

// Job — периодическая фоновая задача.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler запускает задачи по cron-расписанию. Повторный тик задачи,
// которая ещё выполняется, пропускается.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// NewScheduler создаёт планировщик со стандартным 5-польным cron-синтаксисом.
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{cron: cron.New(cron.WithParser(parser))}
}

// AddJob регистрирует задачу с расписанием spec.
func (s *Scheduler) AddJob(job Job, spec string) error {
	_, err := s.cron.AddFunc(spec, s.wrap(job, spec))
	if err != nil {
		jobLogger(job, spec).WithError(err).Error("не удалось запланировать задачу")
		return err
	}
	jobLogger(job, spec).Info("задача запланирована")
	return nil
}

// Start запускает планировщик. Переданный контекст передаётся задачам.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx = ctx
	s.cron.Start()
}

// Stop останавливает планировщик и дожидается завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			jobLogger(job, spec).Info("задача пропущена: предыдущий запуск ещё выполняется")
			return
		}
		defer running.Store(false)

		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}

		start := time.Now()
		err := job.Run(ctx)
		entry := jobLogger(job, spec).WithField("duration", time.Since(start).String())
		if err != nil {
			entry.WithError(err).Error("задача завершилась с ошибкой")
			return
		}
		entry.Info("задача выполнена")
	}
}

func jobLogger(job Job, spec string) *logrus.Entry {
	log := logger.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithFields(logrus.Fields{"job": job.Name(), "spec": spec})
}
