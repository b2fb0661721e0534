package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/atelier-backend/internal/models"
	"github.com/ignatzorin/atelier-backend/internal/pkg/apperror"
	"github.com/ignatzorin/atelier-backend/internal/repository"
)

// Параметры блокировки учётной записи: пятая подряд неудачная попытка
// блокирует вход на 15 минут.
const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

// AdminUserRepo описывает зависимости AuthService от слоя хранилища.
type AdminUserRepo interface {
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	GetByID(ctx context.Context, id int64) (*models.AdminUser, error)
	RecordFailedLogin(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error
	RecordSuccessfulLogin(ctx context.Context, id int64) error
}

// AuthService инкапсулирует вход администраторов с защитой от перебора пароля.
type AuthService struct {
	repo   AdminUserRepo
	tokens *TokenManager
}

// LoginResult возвращает итог успешного входа.
type LoginResult struct {
	User      *models.AdminUser
	TokenPair *TokenPair
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AdminUserRepo, tokens *TokenManager) *AuthService {
	return &AuthService{repo: repo, tokens: tokens}
}

// Login проверяет учётные данные и выпускает пару токенов.
// Несуществующий пользователь, неактивная запись и неверный пароль дают
// один и тот же ответ, чтобы не раскрывать, какие логины существуют.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "имя пользователя и пароль обязательны")
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAdminUserNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при проверке учётных данных")
	}

	if !user.IsActive {
		return nil, apperror.ErrInvalidCredentials
	}

	now := time.Now()
	if user.IsLocked(now) {
		wait := int(time.Until(*user.LockedUntil).Round(time.Minute).Minutes())
		if wait < 1 {
			wait = 1
		}
		return nil, apperror.New(apperror.ErrCodeForbidden,
			fmt.Sprintf("аккаунт заблокирован, попробуйте через %d мин.", wait))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		attempts := user.LoginAttempts + 1
		var lockedUntil *time.Time
		if attempts >= maxLoginAttempts {
			until := now.Add(lockoutDuration)
			lockedUntil = &until
		}
		if recErr := s.repo.RecordFailedLogin(ctx, user.ID, attempts, lockedUntil); recErr != nil {
			return nil, apperror.Wrap(recErr, apperror.ErrCodeDatabaseError, "ошибка при проверке учётных данных")
		}
		return nil, apperror.ErrInvalidCredentials
	}

	if err := s.repo.RecordSuccessfulLogin(ctx, user.ID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при входе")
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токены")
	}

	return &LoginResult{User: user, TokenPair: pair}, nil
}

// Profile возвращает данные администратора по идентификатору из токена.
func (s *AuthService) Profile(ctx context.Context, id int64) (*models.AdminUser, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAdminUserNotFound) {
			return nil, apperror.ErrAdminNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при получении профиля")
	}
	return user, nil
}

// Refresh выпускает новую пару токенов по действующему refresh токену.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAdminUserNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка при обновлении токена")
	}
	if !user.IsActive || user.IsLocked(time.Now()) {
		return nil, apperror.ErrUnauthorized
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токены")
	}
	return &LoginResult{User: user, TokenPair: pair}, nil
}
