package service

import (
	"context"
	"time"

	"github.com/ignatzorin/atelier-backend/internal/models"
	"github.com/ignatzorin/atelier-backend/internal/pkg/apperror"
)

// SeedService наполняет базу примерами заявок. Используется только
// в development окружении.
type SeedService struct {
	repo AppointmentRepo
}

// NewSeedService создаёт сервис сидирования.
func NewSeedService(repo AppointmentRepo) *SeedService {
	return &SeedService{repo: repo}
}

// Seed вставляет демонстрационные заявки и возвращает их количество.
func (s *SeedService) Seed(ctx context.Context) (int, error) {
	notes := func(v string) *string { return &v }
	samples := []models.Appointment{
		{
			AppointmentTime: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			Name:            "Чжан Сань",
			Phone:           "13800138001",
			Email:           "zhangsan@example.com",
			Notes:           notes("первый визит, нужна снятие мерок"),
			Status:          models.StatusPending,
		},
		{
			AppointmentTime: time.Date(2024, 1, 16, 14, 0, 0, 0, time.UTC),
			Name:            "Ли Сы",
			Phone:           "13800138002",
			Email:           "lisi@example.com",
			Notes:           notes("правка прошлого заказа"),
			Status:          models.StatusApproved,
		},
		{
			AppointmentTime: time.Date(2024, 1, 17, 16, 0, 0, 0, time.UTC),
			Name:            "Ван У",
			Phone:           "13800138003",
			Email:           "wangwu@example.com",
			Notes:           notes("примерка готового изделия"),
			Status:          models.StatusPending,
		},
	}

	created := 0
	for i := range samples {
		if err := s.repo.Create(ctx, &samples[i]); err != nil {
			return created, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать демо-данные")
		}
		created++
	}
	return created, nil
}
