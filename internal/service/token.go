package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/atelier-backend/internal/models"
)

// TokenPair хранит пару access/refresh токенов.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// TokenManager отвечает за выпуск и проверку JWT администраторов.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// GeneratePair выпускает новую пару токенов для администратора.
func (m *TokenManager) GeneratePair(user *models.AdminUser) (*TokenPair, error) {
	now := time.Now()

	accessToken, err := m.createToken(user, now.Add(m.accessTTL), m.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("token manager: access token %w", err)
	}

	refreshToken, err := m.createRefreshToken(user, now.Add(m.refreshTTL))
	if err != nil {
		return nil, fmt.Errorf("token manager: refresh token %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    m.accessTTL,
	}, nil
}

// ParseAccess извлекает id и роль администратора из access токена.
func (m *TokenManager) ParseAccess(token string) (int64, string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.accessSecret, nil
	})
	if err != nil {
		return 0, "", err
	}
	if !parsed.Valid {
		return 0, "", jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, "", jwt.ErrTokenInvalidClaims
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, "", jwt.ErrTokenInvalidClaims
	}

	role, _ := claims["role"].(string)
	return userID, role, nil
}

// ParseRefresh проверяет refresh токен и возвращает id администратора.
func (m *TokenManager) ParseRefresh(token string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.refreshSecret, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return userID, nil
}

func (m *TokenManager) createToken(user *models.AdminUser, expiresAt time.Time, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(user.ID, 10),
		"username": user.Username,
		"role":     user.Role,
		"iat":      time.Now().Unix(),
		"exp":      expiresAt.Unix(),
		"jti":      uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *TokenManager) createRefreshToken(user *models.AdminUser, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
}
