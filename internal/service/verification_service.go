package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ignatzorin/atelier-backend/internal/models"
	"github.com/ignatzorin/atelier-backend/internal/pkg/apperror"
	"github.com/ignatzorin/atelier-backend/internal/repository"
	"github.com/ignatzorin/atelier-backend/internal/validation"
)

// VerificationRepo описывает зависимости VerificationService от слоя хранилища.
type VerificationRepo interface {
	CreateCode(ctx context.Context, email, code, codeType string, expiresAt time.Time) (*models.VerificationCode, error)
	FindLatestValid(ctx context.Context, email, code, codeType string) (*models.VerificationCode, error)
	FindMostRecent(ctx context.Context, email, codeType string) (*models.VerificationCode, error)
	InvalidateAllUnused(ctx context.Context, email, codeType string) error
	MarkUsed(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// VerificationService управляет жизненным циклом кодов подтверждения:
// генерация, отправка, одноразовое погашение, кулдаун и чистка.
type VerificationService struct {
	repo     VerificationRepo
	gateway  NotificationGateway
	codeTTL  time.Duration
	cooldown time.Duration
}

// NewVerificationService создаёт сервис кодов подтверждения.
// codeTTL и cooldown меньше либо равные нулю заменяются значениями
// по умолчанию: 10 минут и 60 секунд.
func NewVerificationService(repo VerificationRepo, gateway NotificationGateway, codeTTL, cooldown time.Duration) *VerificationService {
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &VerificationService{
		repo:     repo,
		gateway:  gateway,
		codeTTL:  codeTTL,
		cooldown: cooldown,
	}
}

// RequestCode генерирует и отправляет новый код для пары (email, type).
//
// Порядок важен: запись кода создаётся до попытки отправки, поэтому кулдаун
// срабатывает и после неудачной отправки — повторный запрос внутри окна
// блокируется в любом случае. Все прежние неиспользованные коды пары
// гасятся, действителен всегда только последний.
func (s *VerificationService) RequestCode(ctx context.Context, email, codeType string) (*models.VerificationCode, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if strings.TrimSpace(codeType) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "тип кода обязателен")
	}

	recent, err := s.repo.FindMostRecent(ctx, email, codeType)
	if err != nil && !errors.Is(err, repository.ErrVerificationCodeNotFound) {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить кулдаун")
	}
	if recent != nil {
		elapsed := time.Since(recent.CreatedAt)
		if elapsed < s.cooldown {
			wait := int((s.cooldown - elapsed).Round(time.Second).Seconds())
			if wait < 1 {
				wait = 1
			}
			return nil, apperror.New(apperror.ErrCodeRateLimited,
				fmt.Sprintf("код уже отправлен, повторите через %d сек.", wait))
		}
	}

	code, err := generateCode()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сгенерировать код")
	}

	if err := s.repo.InvalidateAllUnused(ctx, email, codeType); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отозвать прежние коды")
	}

	record, err := s.repo.CreateCode(ctx, email, code, codeType, time.Now().Add(s.codeTTL))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить код")
	}

	notification := Notification{
		To:   email,
		Kind: NotificationVerificationCode,
		Payload: NotificationPayload{
			Code:         code,
			ExpiresInMin: int(s.codeTTL.Minutes()),
		},
	}
	if err := s.gateway.Send(ctx, notification); err != nil {
		logNotificationFailure(email, NotificationVerificationCode, err)
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось отправить код подтверждения")
	}

	return record, nil
}

// VerifyCode гасит код. Успешной может быть ровно одна проверка на каждый
// выданный код. Неверный и просроченный коды намеренно неразличимы в ответе.
func (s *VerificationService) VerifyCode(ctx context.Context, email, code, codeType string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" || strings.TrimSpace(codeType) == "" {
		return apperror.New(apperror.ErrCodeValidation, "email, код и тип кода обязательны")
	}

	record, err := s.repo.FindLatestValid(ctx, email, code, codeType)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationCodeNotFound) {
			return apperror.New(apperror.ErrCodeBadRequest, "код недействителен или истёк")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить код")
	}

	if err := s.repo.MarkUsed(ctx, record.ID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось погасить код")
	}
	return nil
}

// CleanupExpired удаляет все просроченные коды и возвращает количество
// удалённых записей. Операция идемпотентна, её можно запускать повторно
// и параллельно.
func (s *VerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить просроченные коды")
	}
	return removed, nil
}

// generateCode возвращает 6-значный цифровой код, равномерно распределённый
// в диапазоне 100000–999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
